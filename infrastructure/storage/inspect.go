package storage

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// InspectRow is a human readable view of one stored key.
type InspectRow struct {
	Key       string
	Type      string
	Timestamp string
	EntityID  string
	Detail    string
}

func (r InspectRow) Columns() []string {
	return []string{r.Key, r.Type, r.Timestamp, r.EntityID, r.Detail}
}

var InspectHeader = []string{"Key", "Type", "Timestamp", "Entity ID", "Detail"}

// Inspect decodes at most limit keys starting with prefix.
// Undecodable values are reported in the row rather than failing the scan.
func Inspect(db *badger.DB, prefix string, limit int) ([]InspectRow, error) {
	var rows []InspectRow
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)) && len(rows) < limit; it.Next() {
			item := it.Item()
			key := string(item.Key())
			err := item.Value(func(val []byte) error {
				rows = append(rows, describe(key, val))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return rows, err
}

func describe(key string, val []byte) InspectRow {
	row := InspectRow{Key: key, Type: "RAW", Timestamp: "--:--:--", EntityID: "--------", Detail: fmt.Sprintf("Size: %d bytes", len(val))}
	switch {
	case strings.HasPrefix(key, messagePrefix):
		row.Type = "MESSAGE"
		m, err := decodeMessage(val)
		if err != nil {
			row.Detail = err.Error()
			return row
		}
		row.Timestamp = m.CreatedAt.Format(time.TimeOnly)
		row.EntityID = shortID(m.Conversation.ID.String())
		row.Detail = fmt.Sprintf("%s from %s", m.Kind, shortID(m.SenderID))
		if m.Recalled {
			row.Detail += " (recalled)"
		}
		if m.ExpiresAt != nil {
			row.Detail += " expires " + m.ExpiresAt.Format(time.TimeOnly)
		}
	case strings.HasPrefix(key, dmPrefix), strings.HasPrefix(key, groupPrefix):
		row.Type = "CONVERSATION"
		r, err := decodeConversation(val)
		if err != nil {
			row.Detail = err.Error()
			return row
		}
		row.Timestamp = r.UpdatedAt.Format(time.TimeOnly)
		row.EntityID = shortID(r.ID.String())
		row.Detail = fmt.Sprintf("%s, %d members, disappearing=%t/%ds", r.Kind, len(r.Participants), r.Policy.Enabled, r.Policy.AfterSeconds)
	case strings.HasPrefix(key, userPrefix):
		row.Type = "USER"
		u, err := decodeUser(val)
		if err != nil {
			row.Detail = err.Error()
			return row
		}
		row.EntityID = shortID(u.ID)
		row.Detail = u.Username
	case strings.HasPrefix(key, expiryPrefix), strings.HasPrefix(key, listPrefix):
		row.Type = "INDEX"
		parts := strings.Split(key, ":")
		if nanos, err := strconv.ParseInt(parts[len(parts)-2], 10, 64); err == nil {
			row.Timestamp = time.Unix(0, nanos).UTC().Format(time.TimeOnly)
		}
		row.EntityID = shortID(parts[len(parts)-1])
	case strings.HasPrefix(key, pairPrefix), strings.HasPrefix(key, memberPrefix):
		row.Type = "INDEX"
		row.Detail = string(val)
	}
	return row
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
