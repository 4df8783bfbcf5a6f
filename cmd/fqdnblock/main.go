// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Command fqdnblock blocks domain names at the Linux packet filter and
// keeps the block in step with their DNS answers.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/H0llyW00dzZ/fqdn-blocker/src/cli"
)

func main() {
	if err := cli.Execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
