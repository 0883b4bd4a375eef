package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/vocdoni/acpoll/api"
	"github.com/vocdoni/acpoll/api/client"
	"github.com/vocdoni/acpoll/log"
	"github.com/vocdoni/acpoll/poll"
	"github.com/vocdoni/acpoll/types"
)

// IndexEntry describes an archived poll in the archive index.
type IndexEntry struct {
	Poll   types.PollID `json:"poll"`
	Phase  poll.Phase   `json:"phase"`
	File   string       `json:"file"`
	SHA256 string       `json:"sha256"`
}

// Archiver writes poll snapshots to a local folder and, optionally, to S3.
type Archiver struct {
	cli         *client.HTTPclient
	destination string
	remote      *S3Archive
}

func main() {
	var (
		nodeURL     string
		destination string
		all         bool
		timeout     time.Duration
	)
	s3Config := NewDefaultS3Config()

	flag.StringVar(&nodeURL, "node", "http://127.0.0.1:9090", "node API endpoint")
	flag.StringVar(&destination, "destination", "archive", "destination folder for the archived polls")
	flag.BoolVar(&all, "all", false, "archive polls that are not fulfilled yet")
	flag.DurationVar(&timeout, "timeout", 10*time.Minute, "timeout for the whole run")

	flag.BoolVar(&s3Config.Enabled, "s3.enabled", false, "upload the archive to S3")
	flag.BoolVar(&s3Config.Public, "s3.public", false, "make uploaded files public")
	flag.StringVar(&s3Config.HostBase, "s3.host-base", s3Config.HostBase, "S3 host base")
	flag.StringVar(&s3Config.AccessKey, "s3.access-key", "", "S3 access key")
	flag.StringVar(&s3Config.SecretKey, "s3.secret-key", "", "S3 secret key")
	flag.StringVar(&s3Config.Space, "s3.space", s3Config.Space, "S3 space (bucket name)")
	flag.StringVar(&s3Config.Prefix, "s3.prefix", s3Config.Prefix, "S3 key prefix")

	flag.Parse()
	log.Init("info", "stdout", nil)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cli, err := client.New(nodeURL)
	if err != nil {
		log.Fatalf("failed to connect to node: %v", err)
	}
	if err := os.MkdirAll(destination, 0o755); err != nil {
		log.Fatalf("error creating destination folder: %v", err)
	}
	a := &Archiver{cli: cli, destination: destination}
	if s3Config.Enabled {
		if a.remote, err = NewS3Archive(ctx, s3Config); err != nil {
			log.Fatalf("S3 archive unavailable: %v", err)
		}
	}

	index, err := a.ArchivePolls(ctx, all)
	if err != nil {
		log.Fatalf("failed to archive polls: %v", err)
	}
	if _, err := a.write(ctx, "index.json", index); err != nil {
		log.Fatalf("failed to write index: %v", err)
	}
	log.Infow("polls archived", "count", len(index), "destination", destination)
}

// ArchivePolls writes one file per poll and returns the archive index.
// Polls still running are skipped unless all is set.
func (a *Archiver) ArchivePolls(ctx context.Context, all bool) ([]IndexEntry, error) {
	ids, err := a.cli.Polls()
	if err != nil {
		return nil, err
	}
	index := []IndexEntry{}
	for _, id := range ids {
		p, err := a.cli.Poll(id)
		if err != nil {
			return nil, fmt.Errorf("failed to get poll %d: %w", id, err)
		}
		if !all && !isTerminal(p) {
			log.Debugw("skipping running poll", "poll", id, "phase", p.Phase.String())
			continue
		}
		name := fmt.Sprintf("poll-%d.json", id)
		sum, err := a.write(ctx, name, p)
		if err != nil {
			return nil, err
		}
		index = append(index, IndexEntry{Poll: id, Phase: p.Phase, File: name, SHA256: sum})
		log.Infow("poll archived", "poll", id, "phase", p.Phase.String(), "sha256", sum)
	}
	return index, nil
}

func isTerminal(p *api.PollResponse) bool {
	return p.Phase == poll.PhaseFulfilled || p.Phase == poll.PhaseNullified
}

// write stores v as indented JSON under name and returns the hex encoded
// sha256 of the content.
func (a *Archiver) write(ctx context.Context, name string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", name, err)
	}
	sum := sha256.Sum256(data)
	hexSum := hex.EncodeToString(sum[:])
	if err := os.WriteFile(filepath.Join(a.destination, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if a.remote != nil {
		if _, err := a.remote.Put(ctx, name, data, hexSum); err != nil {
			return "", err
		}
	}
	return hexSum, nil
}
