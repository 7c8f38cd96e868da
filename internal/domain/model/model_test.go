package model_test

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/smellovision/scentd/internal/domain/model"
)

func TestKnownScent(t *testing.T) {
	convey.Convey("Given the scent vocabulary", t, func() {
		convey.Convey("Then every label constant should be known", func() {
			labels := []string{
				model.ScentFragrant, model.ScentWoody, model.ScentFruity,
				model.ScentChemical, model.ScentMinty, model.ScentSweet,
				model.ScentPopcorn, model.ScentLemon, model.ScentPungent,
				model.ScentDecayed, model.ScentNone,
			}
			for _, label := range labels {
				convey.So(model.KnownScent(label), convey.ShouldBeTrue)
			}
		})

		convey.Convey("Then labels outside the vocabulary should be rejected", func() {
			convey.So(model.KnownScent("petrichor"), convey.ShouldBeFalse)
			convey.So(model.KnownScent(""), convey.ShouldBeFalse)
			convey.So(model.KnownScent("Woody"), convey.ShouldBeFalse)
		})
	})
}

func TestScentPredictionPrimary(t *testing.T) {
	convey.Convey("Given predictions with different mixes", t, func() {
		convey.Convey("When the prediction has two components", func() {
			pred := model.ScentPrediction{
				Scents: []model.ScentComponent{
					{Label: model.ScentLemon, Proportion: 0.7},
					{Label: model.ScentMinty, Proportion: 0.3},
				},
			}

			convey.Convey("Then the dominant component wins", func() {
				convey.So(pred.Primary(), convey.ShouldEqual, model.ScentLemon)
				convey.So(pred.IsNone(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the components are out of order", func() {
			pred := model.ScentPrediction{
				Scents: []model.ScentComponent{
					{Label: model.ScentMinty, Proportion: 0.2},
					{Label: model.ScentSweet, Proportion: 0.8},
				},
			}

			convey.Convey("Then Primary still picks the strongest", func() {
				convey.So(pred.Primary(), convey.ShouldEqual, model.ScentSweet)
			})
		})

		convey.Convey("When the prediction is scentless", func() {
			pred := model.ScentPrediction{
				Scents: []model.ScentComponent{{Label: model.ScentNone, Proportion: 1}},
			}

			convey.Convey("Then it reports none", func() {
				convey.So(pred.Primary(), convey.ShouldEqual, model.ScentNone)
				convey.So(pred.IsNone(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the prediction has no components", func() {
			pred := model.ScentPrediction{}

			convey.Convey("Then it defaults to none", func() {
				convey.So(pred.Primary(), convey.ShouldEqual, model.ScentNone)
				convey.So(pred.IsNone(), convey.ShouldBeTrue)
			})
		})
	})
}
