package browser

import (
	"context"

	"github.com/entrhq/playwright-mcp/pkg/logging"
	"github.com/entrhq/playwright-mcp/pkg/tools"
)

// toolBase holds what every browser tool shares.
type toolBase struct {
	manager *Manager
	opts    ToolOptions
	logger  *logging.Logger
}

func newToolBase(manager *Manager, opts ToolOptions, logger *logging.Logger) toolBase {
	if logger == nil {
		logger = logging.Nop()
	}
	return toolBase{
		manager: manager,
		opts:    opts,
		logger:  logger,
	}
}

// withPage borrows the page for fn. When fn fails because the browser went
// away and auto restart is enabled, the browser is recovered and fn runs
// once more on the new page. Calls that crashed on the same page share one
// restart. A second failure is returned as is.
func (b toolBase) withPage(ctx context.Context, op string, fn func(Page) error) error {
	page, err := b.manager.GetPage(ctx)
	if err != nil {
		return err
	}

	err = fn(page)
	if err == nil || !b.opts.AutoRestart || !IsCrash(err) {
		return err
	}

	b.logger.Warnf("%s: browser crashed (%v), restarting", op, err)
	page, rerr := b.manager.Recover(ctx, page)
	if rerr != nil {
		return rerr
	}
	return fn(page)
}

// invalid builds a validation failure.
func invalid(message, suggestion string, context map[string]any) tools.Response {
	return tools.Fail(tools.KindValidation, message, suggestion, context)
}

// failure classifies err into the standard failure shape. timeoutMsg, when
// set, replaces the backend message for timeouts.
func failure(err error, timeoutMsg string, context map[string]any) tools.Response {
	kind, suggestion := Classify(err)
	msg := err.Error()
	if kind == tools.KindTimeout && timeoutMsg != "" {
		msg = timeoutMsg
	}
	return tools.Fail(kind, msg, suggestion, context)
}
