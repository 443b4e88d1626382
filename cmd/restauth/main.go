package main

import (
	"context"
	"fmt"
	"os"

	"github.com/viant/restauth/cli"
	"go.uber.org/zap"
)

func main() {
	err := cli.Run(context.Background(), os.Args[1:], os.Stdout)
	if err == nil {
		return
	}
	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Fatal("restauth failed", zap.Error(err))
}
