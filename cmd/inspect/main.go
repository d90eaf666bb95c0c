// Inspect dumps the content of a courier BadgerDB as a table, one row per
// record under the given key prefix. The store is opened read-only so it is
// safe to run against a live process.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "/tmp/courier/badger", "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan (user:, conv:, msg:)")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "ID", "Deleted", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				table.Append(row(string(item.Key()), v))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

type record struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Body      string     `json:"body"`
	Lang      string     `json:"lang"`
	Status    string     `json:"status"`
	SentAt    time.Time  `json:"sent_at"`
	Seq       uint64     `json:"seq"`
	Members   []string   `json:"participant_ids"`
	DeletedAt *time.Time `json:"deleted_at"`
}

func row(key string, val []byte) []string {
	kind := "RAW"
	switch {
	case strings.HasPrefix(key, "user:"):
		kind = "USER"
	case strings.HasPrefix(key, "conv:"):
		kind = "CONV"
	case strings.HasPrefix(key, "msg:"):
		kind = "MSG"
	case strings.HasPrefix(key, "user_email:"), strings.HasPrefix(key, "conv_members:"),
		strings.HasPrefix(key, "msg_id:"), strings.HasPrefix(key, "msg_head:"):
		// Index entries carry an opaque value, not a JSON record.
		return []string{key, "IDX", shortID(string(val)), "", fmt.Sprintf("%d bytes", len(val))}
	}

	var r record
	if err := json.Unmarshal(val, &r); err != nil {
		return []string{key, kind, "--------", "", fmt.Sprintf("unreadable: %v", err)}
	}

	deleted := ""
	if r.DeletedAt != nil {
		deleted = r.DeletedAt.Format("2006-01-02 15:04")
	}

	detail := ""
	switch kind {
	case "USER":
		detail = fmt.Sprintf("%s %s <%s>", r.FirstName, r.LastName, r.Email)
	case "CONV":
		detail = fmt.Sprintf("%d participants", len(r.Members))
	case "MSG":
		detail = fmt.Sprintf("[%s/%s] #%d %s %s", r.Status, r.Lang, r.Seq,
			r.SentAt.Format("15:04:05"), r.Body)
	}
	return []string{key, kind, shortID(r.ID), deleted, detail}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)
	return badger.Open(opts)
}
