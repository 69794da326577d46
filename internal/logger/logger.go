package logger

import (
	"go.uber.org/zap"
)

func New(production bool) *zap.SugaredLogger {
	if production {
		return zap.Must(zap.NewProduction()).Sugar()
	}
	return zap.Must(zap.NewDevelopment()).Sugar()
}
