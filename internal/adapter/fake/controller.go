package fake

import (
	"context"
	"fmt"
	"sync"

	"cfrestart/internal/adapter/fake/fault"
	"cfrestart/internal/cloudcontroller"
	"cfrestart/internal/restart"
)

var _ restart.Controller = (*Controller)(nil)

// Controller is an in-memory controller API. Summaries are served in order;
// the last one repeats once the script runs out.
type Controller struct {
	CallRecorder
	mu sync.Mutex

	spaces    map[string]string
	apps      map[string]cloudcontroller.App
	info      cloudcontroller.Info
	token     string
	summaries []cloudcontroller.AppSummary
	served    int
	onSummary func(n int)
	faults    *fault.Injector
}

func NewController() *Controller {
	return &Controller{
		spaces: make(map[string]string),
		apps:   make(map[string]cloudcontroller.App),
		token:  "bearer fake-token",
		faults: fault.NewInjector(),
	}
}

// Faults exposes the injector consulted before every call, keyed by method
// name.
func (c *Controller) Faults() *fault.Injector {
	return c.faults
}

// AddApp registers an app named name in org/space and returns its GUID.
func (c *Controller) AddApp(org, space, name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := org + "/" + space
	spaceGUID, ok := c.spaces[key]
	if !ok {
		spaceGUID = fmt.Sprintf("space-%d", len(c.spaces)+1)
		c.spaces[key] = spaceGUID
	}
	app := cloudcontroller.App{GUID: fmt.Sprintf("app-%d", len(c.apps)+1), Name: name}
	c.apps[spaceGUID+"/"+name] = app
	return app.GUID
}

func (c *Controller) SetInfo(info cloudcontroller.Info) {
	c.mu.Lock()
	c.info = info
	c.mu.Unlock()
}

func (c *Controller) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// ScriptSummaries replaces the summaries served by AppSummary.
func (c *Controller) ScriptSummaries(summaries ...cloudcontroller.AppSummary) {
	c.mu.Lock()
	c.summaries = summaries
	c.served = 0
	c.mu.Unlock()
}

// OnSummary runs fn before the nth (1-based) AppSummary call returns.
func (c *Controller) OnSummary(fn func(n int)) {
	c.mu.Lock()
	c.onSummary = fn
	c.mu.Unlock()
}

func (c *Controller) ResolveSpace(_ context.Context, org, space string) (string, error) {
	c.record("ResolveSpace", org, space)
	if err := c.faults.Eval("ResolveSpace"); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	guid, ok := c.spaces[org+"/"+space]
	if !ok {
		return "", fmt.Errorf("space %s/%s: %w", org, space, cloudcontroller.ErrNotFound)
	}
	return guid, nil
}

func (c *Controller) ResolveApp(_ context.Context, name, spaceGUID string) (cloudcontroller.App, error) {
	c.record("ResolveApp", name, spaceGUID)
	if err := c.faults.Eval("ResolveApp"); err != nil {
		return cloudcontroller.App{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	app, ok := c.apps[spaceGUID+"/"+name]
	if !ok {
		return cloudcontroller.App{}, fmt.Errorf("app %s: %w", name, cloudcontroller.ErrNotFound)
	}
	return app, nil
}

func (c *Controller) Info(context.Context) (cloudcontroller.Info, error) {
	c.record("Info")
	if err := c.faults.Eval("Info"); err != nil {
		return cloudcontroller.Info{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info, nil
}

func (c *Controller) AppSummary(_ context.Context, appGUID string) (cloudcontroller.AppSummary, error) {
	c.record("AppSummary", appGUID)

	c.mu.Lock()
	c.served++
	n := c.served
	hook := c.onSummary
	var summary cloudcontroller.AppSummary
	if len(c.summaries) > 0 {
		summary = c.summaries[min(n, len(c.summaries))-1]
	}
	c.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if err := c.faults.Eval("AppSummary"); err != nil {
		return cloudcontroller.AppSummary{}, err
	}
	summary.GUID = appGUID
	return summary, nil
}

func (c *Controller) UpdateAppState(_ context.Context, appGUID string, state cloudcontroller.AppState) error {
	c.record("UpdateAppState", appGUID, state)
	return c.faults.Eval("UpdateAppState")
}

func (c *Controller) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}
