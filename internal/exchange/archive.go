package exchange

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"booktrack/internal/blob"
)

// DefaultArchivePrefix is the key prefix under which reports are archived.
const DefaultArchivePrefix = "reports/"

// Archiver stores rendered reports as immutable objects in a blob store.
type Archiver struct {
	store  blob.Store
	prefix string
	now    func() time.Time
}

// NewArchiver wraps store. An empty prefix selects DefaultArchivePrefix.
func NewArchiver(store blob.Store, prefix string) *Archiver {
	if prefix == "" {
		prefix = DefaultArchivePrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Archiver{store: store, prefix: prefix, now: time.Now}
}

// Archive renders rows in format and stores them under a fresh key.
func (a *Archiver) Archive(ctx context.Context, format Format, rows []ReportRow) (blob.Info, error) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, format, rows); err != nil {
		return blob.Info{}, fmt.Errorf("render %s report: %w", format, err)
	}
	created := a.now().UTC()
	key := fmt.Sprintf("%s%s-%s.%s", a.prefix, created.Format("20060102T150405Z"), uuid.NewString()[:8], format)
	info, err := a.store.Put(ctx, key, &buf, blob.PutOptions{
		ContentType: format.ContentType(),
		Metadata: map[string]string{
			"rows":    strconv.Itoa(len(rows)),
			"format":  string(format),
			"created": created.Format(time.RFC3339),
		},
	})
	if err != nil {
		return blob.Info{}, fmt.Errorf("store report %s: %w", key, err)
	}
	return info, nil
}

// List returns archived reports, newest first.
func (a *Archiver) List(ctx context.Context) ([]blob.Info, error) {
	infos, err := a.store.List(ctx, a.prefix)
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key > infos[j].Key })
	return infos, nil
}

// Open returns an archived report. name may omit the archive prefix. Missing
// reports yield blob.ErrNotFound.
func (a *Archiver) Open(ctx context.Context, name string) (blob.Info, io.ReadCloser, error) {
	name = strings.TrimPrefix(name, "/")
	if !strings.HasPrefix(name, a.prefix) {
		name = a.prefix + name
	}
	return a.store.Get(ctx, name)
}
