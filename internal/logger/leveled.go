package logger

import "github.com/sirupsen/logrus"

// Leveled adapts a logrus logger to the msg plus key/value logging interface
// used by retrying HTTP clients.
type Leveled struct {
	Log logrus.FieldLogger
}

func (l Leveled) Error(msg string, keysAndValues ...interface{}) {
	l.entry(keysAndValues).Error(msg)
}

func (l Leveled) Warn(msg string, keysAndValues ...interface{}) {
	l.entry(keysAndValues).Warn(msg)
}

// Info is demoted to debug; request chatter does not belong in session logs.
func (l Leveled) Info(msg string, keysAndValues ...interface{}) {
	l.entry(keysAndValues).Debug(msg)
}

func (l Leveled) Debug(msg string, keysAndValues ...interface{}) {
	l.entry(keysAndValues).Debug(msg)
}

func (l Leveled) entry(kv []interface{}) logrus.FieldLogger {
	fields := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		fields[key] = kv[i+1]
	}
	return l.Log.WithFields(fields)
}
