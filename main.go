package main

import (
	"context"
	"fmt"
	"os"

	"wageflow/internal/app"
)

func main() {
	if err := app.RootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "wageflow:", err)
		os.Exit(1)
	}
}
