package questionset_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/adapters/questionset"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDefault(t *testing.T) {
	Convey("Given the built-in question set", t, func() {
		qs := questionset.Default()

		Convey("Then every category is covered", func() {
			So(questionset.Categories(qs), ShouldHaveLength, len(types.All()))
			for _, c := range types.All() {
				So(questionset.Categories(qs), ShouldContain, c)
			}
		})
	})
}

func TestLoad(t *testing.T) {
	Convey("Given a question set file", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "questions.yaml")

		Convey("When it is valid", func() {
			So(os.WriteFile(path, []byte(`questions:
  - id: q1
    category: " Math "
    text: What is 2 + 2?
    reference_answer: "4"
  - id: q2
    category: code
    text: Reverse a string in Go.
`), 0o600), ShouldBeNil)
			qs, err := questionset.Load(path)

			Convey("Then questions are decoded with normalised categories", func() {
				So(err, ShouldBeNil)
				So(qs, ShouldHaveLength, 2)
				So(qs[0].Category, ShouldEqual, types.Math)
				So(qs[0].ReferenceAnswer, ShouldEqual, "4")
				So(qs[1].Category, ShouldEqual, types.Code)
			})
		})

		Convey("When the path is empty", func() {
			qs, err := questionset.Load("")

			Convey("Then the built-in set is returned", func() {
				So(err, ShouldBeNil)
				So(len(qs), ShouldEqual, len(questionset.Default()))
			})
		})

		Convey("When the file is missing", func() {
			_, err := questionset.Load(filepath.Join(dir, "missing.yaml"))

			Convey("Then an error is returned", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"empty":            `questions: []`,
		"not yaml":         `questions: [`,
		"unknown category": "questions:\n  - {id: q1, category: sports, text: hi}\n",
		"missing id":       "questions:\n  - {category: math, text: hi}\n",
		"blank text":       "questions:\n  - {id: q1, category: math, text: '  '}\n",
		"duplicate id":     "questions:\n  - {id: q1, category: math, text: a}\n  - {id: q1, category: code, text: b}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := questionset.Parse([]byte(doc)); !errors.Is(err, questionset.ErrInvalidSet) {
				t.Fatalf("Parse() err = %v, want ErrInvalidSet", err)
			}
		})
	}
}
