package service

import "go.uber.org/zap"

// causeField attaches err to a log entry only when debug output is enabled.
// Production entries keep the message and context fields without the cause.
func causeField(debug bool, err error) zap.Field {
	if !debug {
		return zap.Skip()
	}
	return zap.Error(err)
}
