package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/philbarbeau/philgpt/internal/window"
)

// exportMessage is one message as it appears in a Slack export shard.
type exportMessage struct {
	TS      string `json:"ts"`
	User    string `json:"user"`
	Text    string `json:"text"`
	Subtype string `json:"subtype"`
}

// LoadChannel reads every *.json shard in one exported channel directory,
// flattens them, and returns the messages sorted ascending by timestamp.
// Unreadable shards and messages with malformed timestamps are skipped, never
// fatal.
func LoadChannel(dir string) ([]window.Message, error) {
	shards, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("glob shards: %w", err)
	}

	var msgs []window.Message
	for _, path := range shards {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var raw []exportMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			continue
		}
		for _, m := range raw {
			ts, err := strconv.ParseFloat(m.TS, 64)
			if err != nil {
				continue
			}
			msgs = append(msgs, window.Message{
				TS:      ts,
				User:    m.User,
				Text:    m.Text,
				Subtype: m.Subtype,
			})
		}
	}

	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].TS < msgs[j].TS })
	return msgs, nil
}
