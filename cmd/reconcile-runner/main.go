// reconcile-runner runs archive reconciliation against a workbook on disk,
// for operators cleaning entry surfaces outside the HTTP flow.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/reconcile-runner -site PIF1 -file ./projects.xlsx [-yes]
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/capex_backend/config"
	"bitbucket.org/mmdatafocus/capex_backend/sheet"
	"bitbucket.org/mmdatafocus/capex_backend/utils"
	"bitbucket.org/mmdatafocus/capex_backend/workflow"
	"github.com/xuri/excelize/v2"
)

func main() {
	site := flag.String("site", "", "active site code")
	file := flag.String("file", "", "path to the entry-surface workbook")
	yes := flag.Bool("yes", false, "delete matched rows without prompting")
	flag.Parse()

	if *site == "" || *file == "" {
		fmt.Fprintln(os.Stderr, "both -site and -file are required")
		os.Exit(2)
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized. Set DB_* env vars.")
		os.Exit(1)
	}

	wb, err := excelize.OpenFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not open %s: %v\n", *file, err)
		os.Exit(1)
	}
	defer wb.Close()

	ctx := utils.SetSiteInContext(context.Background(), *site)
	ctx = utils.SetUserNameInContext(ctx, "reconcile-runner")

	surface := sheet.NewWorkbookSurface(wb, sheet.DefaultSheetName)
	result, err := workflow.ReconcileArchived(ctx, surface, func(matches int) bool {
		if *yes {
			return true
		}
		fmt.Printf("%d rows match archived records. Delete them? [y/N] ", matches)
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		return strings.EqualFold(strings.TrimSpace(line), "y")
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "reconciliation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(result.Message)
	if result.Outcome == workflow.OutcomeCompleted {
		if err := wb.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "could not save %s: %v\n", *file, err)
			os.Exit(1)
		}
	}
}
