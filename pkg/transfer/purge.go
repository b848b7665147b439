package transfer

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/yuya-takeyama/strict-vault-sync/pkg/logger"
)

// purge removes every entry directly under root, leaving root itself. It
// keeps going after failures and returns all of them.
func purge(root string, concurrency int, log logger.Logger) []error {
	entries, err := os.ReadDir(root)
	if err != nil {
		log.Error("purge", root, err)
		return []error{fmt.Errorf("read %s: %w", root, err)}
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]error, len(entries))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, entry := range entries {
		wg.Add(1)
		go func(idx int, name string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			target := filepath.Join(root, name)
			if err := os.RemoveAll(target); err != nil {
				log.Error("purge", target, err)
				results[idx] = fmt.Errorf("remove %s: %w", target, err)
				return
			}
			log.ItemProcessed(string(PhaseRolledBack), name, "removed")
		}(i, entry.Name())
	}

	wg.Wait()

	var errs []error
	for _, err := range results {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
