package service_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/bankrank/internal/app"
)

func TestFormatRow(t *testing.T) {
	Convey("Given query rows", t, func() {
		Convey("Then multi-column rows should print as tuples", func() {
			So(service.FormatRow([]any{"JPMorgan Chase", 432.92, 346.34}), ShouldEqual, "('JPMorgan Chase', 432.92, 346.34)")
		})

		Convey("Then single values should keep the trailing comma", func() {
			So(service.FormatRow([]any{151.987}), ShouldEqual, "(151.987,)")
			So(service.FormatRow([]any{int64(10)}), ShouldEqual, "(10,)")
		})

		Convey("Then whole floats should keep a decimal point", func() {
			So(service.FormatRow([]any{80.0, 1e16, nil}), ShouldEqual, "(80.0, 1e+16, None)")
		})

		Convey("Then quotes should be chosen like a tuple literal", func() {
			So(service.FormatRow([]any{"Banco d'Italia", `say "hi"`}), ShouldEqual, `("Banco d'Italia", 'say "hi"')`)
		})
	})
}
