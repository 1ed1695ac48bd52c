package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/whatchicken/slack-dm-scraper/internal"
)

// evaluator runs a JavaScript function in the page and returns its result
// as JSON
type evaluator interface {
	Eval(ctx context.Context, js string, args ...interface{}) ([]byte, error)
}

// selectorArg is the JSON shape the page scripts expect
type selectorArg struct {
	Pane         []string `json:"pane"`
	MessageBlock []string `json:"message_block"`
	Sender       []string `json:"sender"`
	Timestamp    []string `json:"timestamp"`
	Content      []string `json:"content"`
}

func newSelectorArg(s internal.Selectors) selectorArg {
	return selectorArg{
		Pane:         s.Pane,
		MessageBlock: s.MessageBlock,
		Sender:       s.Sender,
		Timestamp:    s.Timestamp,
		Content:      s.Content,
	}
}

// Driver is an internal.ViewDriver over a Slack web client tab
type Driver struct {
	eval      evaluator
	selectors selectorArg
}

func newDriver(eval evaluator, selectors internal.Selectors) *Driver {
	return &Driver{eval: eval, selectors: newSelectorArg(selectors)}
}

func (d *Driver) run(ctx context.Context, op, js string, out interface{}) error {
	raw, err := d.eval.Eval(ctx, js, d.selectors)
	if err != nil {
		return &internal.ViewError{Op: op, Err: err}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &internal.ViewError{Op: op, Err: fmt.Errorf("decode result: %w", err)}
	}
	return nil
}

// Stimulate implements internal.ViewDriver
func (d *Driver) Stimulate(ctx context.Context) error {
	var res struct {
		Found bool `json:"found"`
	}
	if err := d.run(ctx, "stimulate", stimulateJS, &res); err != nil {
		return err
	}
	if !res.Found {
		return &internal.ViewError{Op: "stimulate", Err: internal.ErrViewNotFound}
	}
	return nil
}

// ReadVisible implements internal.ViewDriver
func (d *Driver) ReadVisible(ctx context.Context) ([]internal.Fragment, error) {
	var res struct {
		Found bool                `json:"found"`
		Items []internal.Fragment `json:"items"`
	}
	if err := d.run(ctx, "read", readVisibleJS, &res); err != nil {
		return nil, err
	}
	if !res.Found {
		return nil, &internal.ViewError{Op: "read", Err: internal.ErrViewNotFound}
	}
	return res.Items, nil
}

// EarliestVisibleMarker implements internal.ViewDriver
func (d *Driver) EarliestVisibleMarker(ctx context.Context) (string, error) {
	var res struct {
		Found  bool   `json:"found"`
		Marker string `json:"marker"`
	}
	if err := d.run(ctx, "marker", markerJS, &res); err != nil {
		return "", err
	}
	if !res.Found {
		return "", &internal.ViewError{Op: "marker", Err: internal.ErrViewNotFound}
	}
	return res.Marker, nil
}

// Credentials is what the page knows about the signed-in conversation
type Credentials struct {
	Token   string
	Channel string
	URL     string
	Cookies map[string]string
}

// pageCredentials reads the API token and channel from the page
func (d *Driver) pageCredentials(ctx context.Context) (Credentials, error) {
	raw, err := d.eval.Eval(ctx, credentialsJS)
	if err != nil {
		return Credentials{}, fmt.Errorf("read credentials: %w", err)
	}
	var res struct {
		Channel string `json:"channel"`
		Token   string `json:"token"`
		URL     string `json:"url"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return Credentials{}, fmt.Errorf("decode credentials: %w", err)
	}
	return Credentials{Token: res.Token, Channel: res.Channel, URL: res.URL}, nil
}
