package logger

import (
	"go.uber.org/zap"
)

// New builds the process logger. Development mode gives human readable
// output, everything else logs JSON.
func New(appEnv string) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if appEnv == "development" {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return l
}
