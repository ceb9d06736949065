package metrics

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// CustomNewRelicContextLogFormatter formats logs through formatter and also
// forwards them to New Relic, including every logrus.Entry field. Entries
// without a transaction in their context are recorded against the
// application.
//
// Based off of: https://github.com/newrelic/go-agent/blob/f1942e10f0819e2c854d5d7289eb0dc1c52a00af/v3/integrations/logcontext-v2/nrlogrus/formatter.go
type CustomNewRelicContextLogFormatter struct {
	app       *newrelic.Application
	formatter logrus.Formatter
}

func NewCustomNewRelicLogFormatter(app *newrelic.Application, formatter logrus.Formatter) CustomNewRelicContextLogFormatter {
	return CustomNewRelicContextLogFormatter{
		app:       app,
		formatter: formatter,
	}
}

func (f CustomNewRelicContextLogFormatter) Format(e *logrus.Entry) ([]byte, error) {
	logBytes, err := f.formatter.Format(e)
	if err != nil {
		return nil, err
	}
	b := bytes.NewBuffer(bytes.TrimRight(logBytes, "\n"))

	logData := newrelic.LogData{
		Severity: e.Level.String(),
		Message:  forwardedMessage(e),
	}

	var txn *newrelic.Transaction
	if e.Context != nil {
		txn = newrelic.FromContext(e.Context)
	}

	if txn != nil {
		txn.RecordLog(logData)
		err = newrelic.EnrichLog(b, newrelic.FromTxn(txn))
	} else {
		f.app.RecordLog(logData)
		err = newrelic.EnrichLog(b, newrelic.FromApp(f.app))
	}
	if err != nil {
		return nil, err
	}

	b.WriteString("\n")
	return b.Bytes(), nil
}

// forwardedMessage folds the entry's fields into the message, since log
// forwarding only carries the message text. The error field is rendered
// separately and the remaining fields as a JSON object with sorted keys.
func forwardedMessage(e *logrus.Entry) string {
	if len(e.Data) == 0 {
		return e.Message
	}

	errorString := "<nil>"
	if typed, ok := e.Data[logrus.ErrorKey].(error); ok {
		errorString = fmt.Sprintf("%q", typed.Error())
	}

	keys := maps.Keys(e.Data)
	keys = slices.DeleteFunc(keys, func(k string) bool { return k == logrus.ErrorKey })
	slices.Sort(keys)

	var data bytes.Buffer
	data.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			data.WriteByte(',')
		}
		key, _ := json.Marshal(k)
		value, err := json.Marshal(e.Data[k])
		if err != nil {
			value, _ = json.Marshal(fmt.Sprint(e.Data[k]))
		}
		data.Write(key)
		data.WriteByte(':')
		data.Write(value)
	}
	data.WriteByte('}')

	return fmt.Sprintf("message=%q, error=%s, data=%s", e.Message, errorString, data.String())
}
