package fastview

import (
	"context"
	"errors"

	channerics "github.com/niceyeti/channerics/channels"
)

// ViewBuilder wires one model stream, e.g. solver snapshots, into several views.
// Each model is converted once, e.g. a snapshot into a cell_views.Board, and every
// view receives its own copy of the result. A slow view stalls the others, so
// producers upstream must not block on the stream.
type ViewBuilder[DataModel any, ViewModel any] struct {
	source      <-chan DataModel             // Models in publish order.
	viewModelFn func(DataModel) ViewModel    // Runs once per model, not per view.
	builderFns  []ViewBuilderFunc[ViewModel] // One per view, in page order.
	done        <-chan struct{}              // nil runs until the source closes.
}

// NewViewBuilder returns an empty builder; WithModel and WithView are required.
func NewViewBuilder[DataModel any, ViewModel any]() *ViewBuilder[DataModel, ViewModel] {
	return &ViewBuilder[DataModel, ViewModel]{}
}

// WithModel sets the model stream and its view-model conversion.
func (vb *ViewBuilder[DataModel, ViewModel]) WithModel(
	input <-chan DataModel,
	convert func(DataModel) ViewModel,
) *ViewBuilder[DataModel, ViewModel] {
	vb.source = input
	vb.viewModelFn = convert
	return vb
}

// ViewBuilderFunc builds a view that publishes element updates for each view-model it reads.
type ViewBuilderFunc[ViewModel any] func(<-chan struct{}, <-chan ViewModel) ViewComponent

// WithView appends a view. Build returns views in this order, which is also the
// order the root page lays them out.
func (vb *ViewBuilder[DataModel, ViewModel]) WithView(
	builderFn ViewBuilderFunc[ViewModel],
) *ViewBuilder[DataModel, ViewModel] {
	vb.builderFns = append(vb.builderFns, builderFn)
	return vb
}

// WithContext stops the conversion and every view when ctx is done.
func (vb *ViewBuilder[DataModel, ViewModel]) WithContext(
	ctx context.Context,
) *ViewBuilder[DataModel, ViewModel] {
	vb.done = ctx.Done()
	return vb
}

// ErrNoViews is returned when Build is called before any views were added.
var ErrNoViews = errors.New("no views to build: WithView must be called")

// ErrNoModel is returned when Build is called before WithModel.
var ErrNoModel = errors.New("no model specified: WithModel must be called")

// Build starts the conversion and fan-out goroutines and returns the views.
func (vb *ViewBuilder[DataModel, ViewModel]) Build() (views []ViewComponent, err error) {
	if len(vb.builderFns) == 0 {
		return nil, ErrNoViews
	}
	if vb.viewModelFn == nil || vb.source == nil {
		return nil, ErrNoModel
	}

	vmChan := channerics.Convert(vb.done, vb.source, vb.viewModelFn)
	vmChans := channerics.Broadcast(vb.done, vmChan, len(vb.builderFns))
	for i, build := range vb.builderFns {
		views = append(views, build(vb.done, vmChans[i]))
	}
	return
}
