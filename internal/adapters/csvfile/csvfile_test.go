package csvfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/bankrank/internal/domain/model"
)

func enriched(name string, usd, gbp, eur, inr float64) model.EnrichedBankRecord {
	return model.EnrichedBankRecord{
		BankRecord:          model.BankRecord{Name: name, MarketCapUSDBillion: usd},
		MarketCapGBPBillion: gbp,
		MarketCapEURBillion: eur,
		MarketCapINRBillion: inr,
	}
}

func TestWrite(t *testing.T) {
	Convey("Given enriched records", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "banks.csv")
		records := []model.EnrichedBankRecord{
			enriched("JPMorgan Chase", 432.92, 346.34, 402.62, 35910.71),
			enriched("Bank, of \"Quotes\"", 100, 80, 93, 8295),
		}

		Convey("When writing the file", func() {
			err := Write(path, records)

			Convey("Then the content should be header-first with shortest floats", func() {
				So(err, ShouldBeNil)
				data, readErr := os.ReadFile(path)
				So(readErr, ShouldBeNil)
				So(string(data), ShouldEqual,
					"Name,MC_USD_Billion,MC_GBP_Billion,MC_EUR_Billion,MC_INR_Billion\n"+
						"JPMorgan Chase,432.92,346.34,402.62,35910.71\n"+
						"\"Bank, of \"\"Quotes\"\"\",100,80,93,8295\n")
			})

			Convey("Then reading it back should yield the same records", func() {
				got, readErr := Read(path)
				So(readErr, ShouldBeNil)
				So(got, ShouldResemble, records)
			})

			Convey("Then no temp files should be left behind", func() {
				entries, _ := os.ReadDir(dir)
				So(len(entries), ShouldEqual, 1)
			})
		})

		Convey("When writing an empty slice over an existing file", func() {
			So(Write(path, records), ShouldBeNil)
			err := Write(path, nil)

			Convey("Then only the header should remain", func() {
				So(err, ShouldBeNil)
				data, _ := os.ReadFile(path)
				So(string(data), ShouldEqual, "Name,MC_USD_Billion,MC_GBP_Billion,MC_EUR_Billion,MC_INR_Billion\n")
			})
		})

		Convey("When the directory does not exist", func() {
			err := Write(filepath.Join(dir, "missing", "banks.csv"), records)

			Convey("Then it should return ErrWrite", func() {
				So(errors.Is(err, ErrWrite), ShouldBeTrue)
			})
		})
	})
}

func TestRead(t *testing.T) {
	Convey("Given a file with a foreign header", t, func() {
		path := filepath.Join(t.TempDir(), "other.csv")
		So(os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644), ShouldBeNil)

		Convey("Then Read should return ErrRead", func() {
			_, err := Read(path)
			So(errors.Is(err, ErrRead), ShouldBeTrue)
		})
	})

	Convey("Given a missing file", t, func() {
		_, err := Read(filepath.Join(t.TempDir(), "nope.csv"))
		So(errors.Is(err, ErrRead), ShouldBeTrue)
	})
}
