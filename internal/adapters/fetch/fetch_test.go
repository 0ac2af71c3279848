package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/bankrank/internal/adapters/fetch"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClient_FetchHTTP(t *testing.T) {
	Convey("Given an HTTP server", t, func() {
		var gotUA atomic.Value
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA.Store(r.Header.Get("User-Agent"))
			switch r.URL.Path {
			case "/ok":
				_, _ = w.Write([]byte("<table></table>"))
			case "/slow":
				time.Sleep(200 * time.Millisecond)
				_, _ = w.Write([]byte("late"))
			case "/big":
				_, _ = w.Write(make([]byte, 64))
			default:
				http.NotFound(w, r)
			}
		}))
		defer srv.Close()

		client := fetch.New(fetch.WithUserAgent("bankrank-test"), fetch.WithTimeout(50*time.Millisecond), fetch.WithMaxBytes(32))
		ctx := context.Background()

		Convey("When fetching an existing page", func() {
			body, err := client.Fetch(ctx, srv.URL+"/ok")

			Convey("Then the body and user agent should match", func() {
				So(err, ShouldBeNil)
				So(string(body), ShouldEqual, "<table></table>")
				So(gotUA.Load(), ShouldEqual, "bankrank-test")
			})
		})

		Convey("When the server answers 404", func() {
			_, err := client.Fetch(ctx, srv.URL+"/missing")

			Convey("Then it should return a StatusError", func() {
				So(errors.Is(err, fetch.ErrStatus), ShouldBeTrue)
				var se *fetch.StatusError
				So(errors.As(err, &se), ShouldBeTrue)
				So(se.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the server is slower than the timeout", func() {
			_, err := client.Fetch(ctx, srv.URL+"/slow")

			Convey("Then it should fail as a request error", func() {
				So(errors.Is(err, fetch.ErrRequest), ShouldBeTrue)
			})
		})

		Convey("When the body exceeds the size cap", func() {
			_, err := client.Fetch(ctx, srv.URL+"/big")

			Convey("Then it should fail as a read error", func() {
				So(errors.Is(err, fetch.ErrRead), ShouldBeTrue)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := client.Fetch(cctx, srv.URL+"/ok")

			Convey("Then it should fail without a response", func() {
				So(errors.Is(err, fetch.ErrRequest), ShouldBeTrue)
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

func TestClient_FetchFile(t *testing.T) {
	Convey("Given a local rate file", t, func() {
		path := filepath.Join(t.TempDir(), "exchange_rate.csv")
		So(os.WriteFile(path, []byte("Currency,Rate\nGBP,0.8\n"), 0o600), ShouldBeNil)
		client := fetch.New()
		ctx := context.Background()

		Convey("Then a bare path should be read", func() {
			body, err := client.Fetch(ctx, path)
			So(err, ShouldBeNil)
			So(string(body), ShouldEqual, "Currency,Rate\nGBP,0.8\n")
		})

		Convey("Then a file:// URL should be read", func() {
			body, err := client.Fetch(ctx, "file://"+filepath.ToSlash(path))
			So(err, ShouldBeNil)
			So(string(body), ShouldStartWith, "Currency,Rate")
		})

		Convey("Then a missing file should be a request error", func() {
			_, err := client.Fetch(ctx, path+".missing")
			So(errors.Is(err, fetch.ErrRequest), ShouldBeTrue)
		})

		Convey("Then unknown schemes should be rejected", func() {
			_, err := client.Fetch(ctx, "ftp://example.com/rates.csv")
			So(errors.Is(err, fetch.ErrUnsupportedScheme), ShouldBeTrue)
		})
	})
}
