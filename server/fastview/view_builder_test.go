package fastview

import (
	"context"
	"fmt"
	"html/template"
	"sync"
	"testing"
	"time"

	channerics "github.com/niceyeti/channerics/channels"
	. "github.com/smartystreets/goconvey/convey"
)

type echoView struct {
	id      string
	updates <-chan []EleUpdate
}

func newEchoView(id string) ViewBuilderFunc[string] {
	return func(done <-chan struct{}, vms <-chan string) ViewComponent {
		ev := &echoView{id: id}
		ev.updates = channerics.Convert(done, vms, func(s string) []EleUpdate {
			return []EleUpdate{{EleId: id, Ops: []Op{{Key: TextContent, Value: s}}}}
		})
		return ev
	}
}

func (ev *echoView) Updates() <-chan []EleUpdate {
	return ev.updates
}

func (ev *echoView) Parse(t *template.Template) (string, error) {
	_, err := t.Parse(`{{ define "` + ev.id + `" }}<span id="` + ev.id + `">{{ . }}</span>{{ end }}`)
	return ev.id, err
}

func TestViewBuilder(t *testing.T) {
	Convey("Given a builder", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		input := make(chan int)
		toString := func(i int) string { return fmt.Sprintf("v%d", i) }

		Convey("Build fails without views", func() {
			_, err := NewViewBuilder[int, string]().
				WithModel(input, toString).
				Build()
			So(err, ShouldEqual, ErrNoViews)
		})

		Convey("Build fails without a model", func() {
			_, err := NewViewBuilder[int, string]().
				WithView(newEchoView("a")).
				Build()
			So(err, ShouldEqual, ErrNoModel)
		})

		Convey("Every view receives every converted model, in order", func() {
			views, err := NewViewBuilder[int, string]().
				WithContext(ctx).
				WithModel(input, toString).
				WithView(newEchoView("a")).
				WithView(newEchoView("b")).
				Build()
			So(err, ShouldBeNil)
			So(len(views), ShouldEqual, 2)

			received := make([][]string, len(views))
			var wg sync.WaitGroup
			for i, view := range views {
				wg.Add(1)
				go func(i int, view ViewComponent) {
					defer wg.Done()
					for j := 0; j < 3; j++ {
						select {
						case updates := <-view.Updates():
							received[i] = append(received[i], updates[0].EleId+"="+updates[0].Ops[0].Value)
						case <-time.After(time.Second):
							return
						}
					}
				}(i, view)
			}

			for i := 0; i < 3; i++ {
				input <- i
			}
			wg.Wait()

			So(received[0], ShouldResemble, []string{"a=v0", "a=v1", "a=v2"})
			So(received[1], ShouldResemble, []string{"b=v0", "b=v1", "b=v2"})
		})
	})
}
