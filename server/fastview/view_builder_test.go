package fastview

import (
	"context"
	"html/template"
	"strconv"
	"sync"
	"testing"

	channerics "github.com/niceyeti/channerics/channels"
	. "github.com/smartystreets/goconvey/convey"
)

// echoView publishes one text update per view-model.
type echoView struct {
	updates <-chan []EleUpdate
}

func newEchoView(id string) ViewBuilderFunc[string] {
	return func(done <-chan struct{}, vms <-chan string) ViewComponent {
		return &echoView{
			updates: channerics.Convert(done, vms, func(vm string) []EleUpdate {
				return []EleUpdate{{EleId: id, Ops: []Op{{Key: TEXT_CONTENT, Value: vm}}}}
			}),
		}
	}
}

func (ev *echoView) Updates() <-chan []EleUpdate { return ev.updates }

func (ev *echoView) Parse(t *template.Template) (string, error) {
	_, err := t.Parse(`{{ define "echo" }}{{ . }}{{ end }}`)
	return "echo", err
}

func TestViewBuilder(t *testing.T) {
	Convey("When building views", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		Convey("Build fails without views", func() {
			_, err := NewViewBuilder[int, string]().
				WithModel(make(chan int), strconv.Itoa).
				Build()
			So(err, ShouldEqual, ErrNoViews)
		})

		Convey("Build fails without a model", func() {
			_, err := NewViewBuilder[int, string]().
				WithView(newEchoView("a")).
				Build()
			So(err, ShouldEqual, ErrNoModel)
		})

		Convey("Every view receives every converted model", func() {
			source := make(chan int)
			views, err := NewViewBuilder[int, string]().
				WithContext(ctx).
				WithModel(source, strconv.Itoa).
				WithView(newEchoView("a")).
				WithView(newEchoView("b")).
				Build()
			So(err, ShouldBeNil)
			So(len(views), ShouldEqual, 2)

			go func() {
				for i := 1; i <= 3; i++ {
					source <- i
				}
			}()

			// Drain the views concurrently; the broadcast blocks until every view reads.
			received := make([][]string, len(views))
			var wg sync.WaitGroup
			for j := range views {
				wg.Add(1)
				go func(j int) {
					defer wg.Done()
					for k := 0; k < 3; k++ {
						for _, update := range <-views[j].Updates() {
							received[j] = append(received[j], update.EleId+"="+update.Ops[0].Value)
						}
					}
				}(j)
			}
			wg.Wait()

			So(received[0], ShouldResemble, []string{"a=1", "a=2", "a=3"})
			So(received[1], ShouldResemble, []string{"b=1", "b=2", "b=3"})
		})
	})
}
