package validate_test

import (
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/validate"
)

func TestCheckCreate(t *testing.T) {
	Convey("Given create payloads", t, func() {
		Convey("A valid integer score passes", func() {
			v := validate.Check(false, map[string]any{model.AttrScore: json.Number("10")})
			So(v, ShouldBeEmpty)
		})

		Convey("An empty payload reports exactly the missing score", func() {
			v := validate.Check(false, map[string]any{})
			So(v, ShouldHaveLength, 1)
			So(v[0], ShouldContainSubstring, "Result score is required.")
		})

		Convey("A negative score reports exactly the range violation", func() {
			v := validate.Check(false, map[string]any{model.AttrScore: json.Number("-1")})
			So(v, ShouldHaveLength, 1)
			So(v[0], ShouldContainSubstring, "must be >= 0.")
		})

		Convey("A fractional score fails the type check, which suppresses the range check", func() {
			v := validate.Check(false, map[string]any{model.AttrScore: json.Number("-1.5")})
			So(v, ShouldHaveLength, 1)
			So(v[0], ShouldContainSubstring, "must be an integer.")
		})

		Convey("A numeric string is not an integer", func() {
			v := validate.Check(false, map[string]any{model.AttrScore: "10"})
			So(v, ShouldHaveLength, 1)
			So(v[0], ShouldContainSubstring, "must be an integer.")
		})

		Convey("A malformed time is reported", func() {
			v := validate.Check(false, map[string]any{
				model.AttrScore: json.Number("1"),
				model.AttrTime:  "yesterday",
			})
			So(v, ShouldHaveLength, 1)
			So(v[0], ShouldContainSubstring, "Invalid time format. Use 'YYYY-MM-DD HH:MM:SS'.")
		})

		Convey("A well-formed time passes", func() {
			v := validate.Check(false, map[string]any{
				model.AttrScore: json.Number("1"),
				model.AttrTime:  "2024-06-01 12:30:00",
			})
			So(v, ShouldBeEmpty)
		})
	})
}

func TestCheckUpdate(t *testing.T) {
	Convey("Given update payloads", t, func() {
		Convey("The owner field becomes required", func() {
			v := validate.Check(true, map[string]any{model.AttrScore: json.Number("5")})
			So(v, ShouldHaveLength, 1)
			So(v[0], ShouldContainSubstring, "User (email) is required.")
		})

		Convey("All violations are collected, not short-circuited", func() {
			v := validate.Check(true, map[string]any{model.AttrTime: "nope"})
			So(v, ShouldHaveLength, 3)

			msg := validate.Message(v)
			So(msg, ShouldStartWith, validate.MessagePrefix)
			So(msg, ShouldContainSubstring, "User (email) is required.")
			So(msg, ShouldContainSubstring, "Result score is required.")
			So(msg, ShouldContainSubstring, " | ")
		})
	})
}

func TestScoreAndTime(t *testing.T) {
	Convey("Given a validated payload", t, func() {
		payload := map[string]any{
			model.AttrScore: json.Number("42"),
			model.AttrTime:  "2024-06-01 12:30:00",
		}

		Convey("Score extracts the integer value", func() {
			So(validate.Score(payload), ShouldEqual, 42)
		})

		Convey("Time parses under the exact wire layout", func() {
			ts, err := validate.Time(payload[model.AttrTime])
			So(err, ShouldBeNil)
			So(ts.Format(model.TimeLayout), ShouldEqual, "2024-06-01 12:30:00")
		})

		Convey("Time rejects non-string values", func() {
			_, err := validate.Time(12345)
			So(err, ShouldEqual, validate.ErrNotTime)
		})
	})
}
