package ai

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/smellovision/scentd/internal/domain/fingerprint"
	"github.com/smellovision/scentd/internal/domain/model"
)

func TestParsePrediction(t *testing.T) {
	convey.Convey("Given model output in the expected wire format", t, func() {
		fp := fingerprint.Fingerprint("abc123")

		convey.Convey("When the output is a single scent", func() {
			pred, err := parsePrediction(fp, "test-model", "woody 1")

			convey.Convey("Then it should parse into one component", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(pred.Scents, convey.ShouldHaveLength, 1)
				convey.So(pred.Scents[0].Label, convey.ShouldEqual, model.ScentWoody)
				convey.So(pred.Scents[0].Proportion, convey.ShouldEqual, 1.0)
				convey.So(pred.Confidence, convey.ShouldEqual, 1.0)
				convey.So(pred.Model, convey.ShouldEqual, "test-model")
				convey.So(pred.Fingerprint, convey.ShouldEqual, "abc123")
			})
		})

		convey.Convey("When the output mixes two scents", func() {
			pred, err := parsePrediction(fp, "test-model", "lemon 0.7 minty 0.3")

			convey.Convey("Then both components should parse, strongest first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(pred.Scents, convey.ShouldHaveLength, 2)
				convey.So(pred.Scents[0].Label, convey.ShouldEqual, model.ScentLemon)
				convey.So(pred.Scents[1].Label, convey.ShouldEqual, model.ScentMinty)
				convey.So(pred.Confidence, convey.ShouldEqual, 0.7)
			})
		})

		convey.Convey("When the components arrive weakest first", func() {
			pred, err := parsePrediction(fp, "test-model", "minty 0.3 lemon 0.7")

			convey.Convey("Then they should be reordered strongest first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(pred.Scents[0].Label, convey.ShouldEqual, model.ScentLemon)
				convey.So(pred.Scents[0].Proportion, convey.ShouldEqual, 0.7)
			})
		})

		convey.Convey("When the output is none", func() {
			pred, err := parsePrediction(fp, "test-model", "none")

			convey.Convey("Then it should be a scentless prediction", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(pred.IsNone(), convey.ShouldBeTrue)
				convey.So(pred.Confidence, convey.ShouldEqual, 1.0)
			})
		})

		convey.Convey("When the output carries stray casing and whitespace", func() {
			pred, err := parsePrediction(fp, "test-model", "  Woody 0.6  Sweet 0.4 \n")

			convey.Convey("Then it should normalize and parse", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(pred.Scents[0].Label, convey.ShouldEqual, model.ScentWoody)
				convey.So(pred.Scents[1].Label, convey.ShouldEqual, model.ScentSweet)
			})
		})

		convey.Convey("When proportions are slightly off from rounding", func() {
			_, err := parsePrediction(fp, "test-model", "woody 0.67 minty 0.33")

			convey.Convey("Then the tolerance should accept them", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given malformed model output", t, func() {
		fp := fingerprint.Fingerprint("abc123")

		cases := map[string]string{
			"empty content":          "",
			"an unknown scent":       "petrichor 1",
			"an odd token count":     "woody 0.5 minty",
			"too many components":    "woody 0.4 minty 0.3 lemon 0.3",
			"a non-numeric value":    "woody one",
			"a zero proportion":      "woody 0 minty 1",
			"an oversized value":     "woody 1.5",
			"a sum far from one":     "woody 0.4 minty 0.4",
			"prose around the scent": "the image smells like woody 1 to me",
		}

		for name, raw := range cases {
			raw := raw
			convey.Convey("When the output has "+name, func() {
				_, err := parsePrediction(fp, "test-model", raw)

				convey.Convey("Then parsing should fail", func() {
					convey.So(err, convey.ShouldWrap, ErrParse)
				})
			})
		}
	})
}
