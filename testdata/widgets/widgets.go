package widgets

import "fmt"

type Logger interface {
	Log(msg string)
}

type stdoutLogger struct{}

func (stdoutLogger) Log(msg string) { fmt.Println(msg) }

//diverify:component name=logger
func NewLogger() Logger { return stdoutLogger{} }

type Widget struct {
	count int
	log   Logger
}

// NewWidget needs a count only the caller knows.
//
//diverify:component name=widget
func NewWidget(count int, log Logger) *Widget {
	return &Widget{count: count, log: log}
}

type Consumer struct{ w *Widget }

// NewConsumer takes a Widget directly, which the container can never build.
//
//diverify:component name=consumer
func NewConsumer(w *Widget) *Consumer { return &Consumer{w: w} }

type Dashboard struct {
	newWidget func(int) *Widget
}

//diverify:component name=dashboard
func NewDashboard(newWidget func(size int) *Widget) (*Dashboard, error) {
	if newWidget == nil {
		return nil, fmt.Errorf("widgets: nil factory")
	}
	return &Dashboard{newWidget: newWidget}, nil
}

// WidgetFactory hands out widgets of any size.
//
//diverify:factory name=widgetFactory
type WidgetFactory interface {
	Create(count int) *Widget
	Release(w *Widget)
}

// BareFactory cannot pass a count on.
//
//diverify:factory name=bareFactory release=Destroy
type BareFactory interface {
	Create() *Widget
	Destroy(w *Widget) bool
	Reset()
}
