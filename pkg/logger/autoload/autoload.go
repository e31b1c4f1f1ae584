// Package autoload initialises the global logger from LOG_* settings on import.
package autoload

import (
	configx "github.com/tanpawarit/chative-concierge/pkg/config"
	logx "github.com/tanpawarit/chative-concierge/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}
