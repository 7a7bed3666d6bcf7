package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "citybrains/road_graph"

	. "github.com/smartystreets/goconvey/convey"
)

const smallConfig = `kind: training
def:
  episodes: 5
  hyperParams:
    - key: maxEpisodeSteps
      val: 30
`

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRouteCommand(t *testing.T) {
	Convey("Given the debug layout", t, func() {
		Convey("The route between home and shop is printed", func() {
			out, err := execute("route", "home", "shop", "--debug")
			So(err, ShouldBeNil)
			So(out, ShouldStartWith, "home -> shop: 8 steps\n(0,0) ")
			So(out, ShouldEndWith, "(5,3)\n")
		})

		Convey("An unknown point of interest fails", func() {
			_, err := execute("route", "home", "moon", "--debug")
			So(errors.Is(err, ErrUnknownPOI), ShouldBeTrue)
		})
	})

	Convey("Given the environment selects the downtown layout", t, func() {
		t.Setenv("CITYBRAINS_LAYOUT", "downtown")

		Convey("The route is planned on it", func() {
			out, err := execute("route", "home", "shop")
			So(err, ShouldBeNil)
			So(out, ShouldStartWith, "home -> shop:")
		})
	})

	Convey("Given an unknown layout", t, func() {
		_, err := execute("route", "home", "shop", "--layout", "maze")
		So(errors.Is(err, ErrBadLayout), ShouldBeTrue)
	})
}

func TestTrainCommand(t *testing.T) {
	Convey("Given a small training config", t, func() {
		path := filepath.Join(t.TempDir(), "config.yaml")
		So(os.WriteFile(path, []byte(smallConfig), 0o644), ShouldBeNil)

		Convey("Training prints the city, both policies and the stats", func() {
			out, err := execute("train", "--debug", "--config", path, "--nworkers", "2")
			So(err, ShouldBeNil)
			So(out, ShouldStartWith, "H ")
			So(out, ShouldContainSubstring, "Policy (shop):")
			So(out, ShouldContainSubstring, "Policy (home):")
			So(out, ShouldContainSubstring, "Total:")
			So(out, ShouldContainSubstring, `"episodes": 10`)
		})
	})

	Convey("Given a missing config file", t, func() {
		Convey("Training falls back to the defaults", func() {
			path := filepath.Join(t.TempDir(), "missing.yaml")
			out, err := execute("train", "--debug", "--config", path, "--nworkers", "1")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, `"episodes": 500`)
		})
	})
}
