package main

import (
	"context"
	"fmt"
	"os"

	"github.com/allanpk716/expediente_notifier/internal/cmd"
)

func main() {
	if err := cmd.Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd.AppName, err)
		os.Exit(1)
	}
}
