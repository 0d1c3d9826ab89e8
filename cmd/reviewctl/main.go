package main

import (
	"fmt"
	"os"

	"github.com/Pesokrava/review_widget/internal/config"
	"github.com/Pesokrava/review_widget/internal/repository"
)

func main() {
	root := newRootCmd(config.Load, repository.Open)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
