// Command hsisomap runs landmark Isomap tasks on hyperspectral data.
//
// Usage:
//
//	hsisomap run task.yaml
//	hsisomap pca --input image.txt --out-dir pca/
//	hsisomap nncache --input image.txt --backbone backbone.txt --neighbors 10 --out nncache.zst
//	hsisomap version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
