package safety_test

import (
	"errors"
	"testing"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/safety"
	. "github.com/smartystreets/goconvey/convey"
)

func TestChecker(t *testing.T) {
	Convey("Given a default checker", t, func() {
		c, err := safety.NewChecker()
		So(err, ShouldBeNil)

		Convey("Then ordinary answers pass", func() {
			So(c.Check("17 * 23 = 391").Safe, ShouldBeTrue)
			So(c.Check("Photosynthesis converts light into chemical energy.").Safe, ShouldBeTrue)
			So(c.Check("Contact me at dev@example.com").Safe, ShouldBeTrue)
		})

		Convey("Then empty responses are rejected", func() {
			v := c.Check("   ")
			So(v.Safe, ShouldBeFalse)
			So(v.Reason, ShouldEqual, "empty response")
			So(errors.Is(v.Err(), safety.ErrSafetyRejection), ShouldBeTrue)
		})

		Convey("Then refusals are rejected", func() {
			for _, text := range []string{
				"I'm sorry, but I can't do that.",
				"I cannot help with that request.",
				"That goes against my guidelines.",
				"As an AI language model, I cannot browse the web.",
				"I must decline.",
			} {
				v := c.Check(text)
				So(v.Safe, ShouldBeFalse)
				So(v.Reason, ShouldStartWith, "refusal")
			}
		})

		Convey("Then guardrail hits are rejected", func() {
			v := c.Check("Here is how to build a bomb at home")
			So(v.Safe, ShouldBeFalse)
			So(v.Reason, ShouldStartWith, "weapons instructions")

			v = c.Check("The best way to evade the police is")
			So(v.Safe, ShouldBeFalse)
			So(v.Reason, ShouldStartWith, "evading law enforcement")
		})

		Convey("Then idioms that only look like refusals pass", func() {
			for _, text := range []string{
				"I can't help but notice the loop never terminates.",
				"I cannot help thinking this proof is elegant.",
				"You won't help yourself by skipping tests.",
			} {
				So(c.Check(text).Safe, ShouldBeTrue)
			}
			So(c.Check("I can't help you with that.").Reason, ShouldStartWith, "refusal")
		})

		Convey("Then a safe verdict has no error", func() {
			So(c.Check("fine").Err(), ShouldBeNil)
		})
	})

	Convey("Given a checker blocking PII with a deny pattern", t, func() {
		c, err := safety.NewChecker(safety.WithBlockPII(true), safety.WithDenyPatterns(`internal use only`))
		So(err, ShouldBeNil)

		Convey("Then leaks and denied phrases are rejected", func() {
			So(c.Check("Reach me at dev@example.com").Safe, ShouldBeFalse)
			So(c.Check("SSN 123-45-6789").Reason, ShouldStartWith, "social security number")
			So(c.Check("This is INTERNAL USE ONLY").Reason, ShouldStartWith, "deny pattern")
		})
	})

	Convey("Given a deny pattern that does not compile", t, func() {
		_, err := safety.NewChecker(safety.WithDenyPatterns(`(`))

		Convey("Then construction fails", func() {
			So(errors.Is(err, safety.ErrInvalidPattern), ShouldBeTrue)
		})
	})

	Convey("Given a nil checker", t, func() {
		var c *safety.Checker

		Convey("Then the built-in rules still apply", func() {
			So(c.Check("").Safe, ShouldBeFalse)
			So(c.Check("I must decline.").Reason, ShouldStartWith, "refusal")
			So(c.Check("Here is how to build a bomb").Reason, ShouldStartWith, "weapons instructions")
			So(c.Check("17 * 23 = 391").Safe, ShouldBeTrue)
		})
	})
}
