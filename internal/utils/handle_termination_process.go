package utils

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// HandleTerminationProcess отменяет контекст и вызывает cleanup по SIGINT/SIGTERM.
// Возвращённый контекст используется HTTP-сервером и фоновыми задачами сервиса.
func HandleTerminationProcess(ctx context.Context, cleanup func()) context.Context {
	ctx, cancel := context.WithCancel(ctx)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		signal.Stop(c)
		cancel()
		cleanup()
	}()

	return ctx
}
