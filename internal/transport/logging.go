// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"

	applog "spectro/internal/log"
)

// LoggingTransport writes every message to the debug log as JSON.
type LoggingTransport struct {
	log *applog.Logger
}

func NewLoggingTransport() *LoggingTransport {
	lt := &LoggingTransport{log: applog.Named("transport")}
	lt.log.Infof("using logging transport")
	return lt
}

// Send logs data. It never fails.
func (lt *LoggingTransport) Send(data any) error {
	if applog.GetLevel() > applog.LevelDebug {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		lt.log.Debugf("%T: %+v (marshal: %v)", data, data, err)
		return nil
	}
	lt.log.Debugf("%s", b)
	return nil
}

func (lt *LoggingTransport) Close() error {
	lt.log.Debugf("closed")
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
