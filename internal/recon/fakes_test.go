package recon

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"phototier/internal/blob"
	"phototier/internal/fs"
	"phototier/internal/photo"
	"phototier/internal/store"
)

// memStore is an in-memory RecordStore honoring the per-code atomic
// upsert contract (single lock around the map).
type memStore struct {
	mu         sync.Mutex
	recs       map[string]photo.Record
	failUpsert map[string]error
	failClear  map[string]error
	failMark   map[string]error
}

var _ store.RecordStore = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		recs:       make(map[string]photo.Record),
		failUpsert: make(map[string]error),
		failClear:  make(map[string]error),
		failMark:   make(map[string]error),
	}
}

func copyRecord(rec photo.Record) photo.Record {
	out := rec
	out.Payload = append([]byte(nil), rec.Payload...)
	return out
}

func (m *memStore) Upsert(_ context.Context, rec *photo.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failUpsert[rec.Code]; err != nil {
		return err
	}
	m.recs[rec.Code] = copyRecord(*rec)
	return nil
}

func (m *memStore) MarkExported(_ context.Context, code string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failMark[code]; err != nil {
		return err
	}
	rec, ok := m.recs[code]
	if !ok {
		return nil
	}
	stamp := at
	rec.ExportedDate = &stamp
	m.recs[code] = rec
	return nil
}

func (m *memStore) FindAll(_ context.Context) ([]photo.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]photo.Record, 0, len(m.recs))
	for _, rec := range m.recs {
		out = append(out, copyRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *memStore) FindByCode(_ context.Context, code string) (*photo.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[code]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := copyRecord(rec)
	return &out, nil
}

func (m *memStore) FindByHash(_ context.Context, hash string) (*photo.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.recs {
		if rec.FileHash != nil && *rec.FileHash == hash {
			out := copyRecord(rec)
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) FindSyncRequired(_ context.Context) ([]photo.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []photo.Record
	for _, rec := range m.recs {
		if rec.CloudSyncRequired {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *memStore) FindLocalOnly(_ context.Context) ([]photo.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []photo.Record
	for _, rec := range m.recs {
		if rec.HasPayload() && !rec.HasCloudRef() {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *memStore) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.recs)), nil
}

func (m *memStore) ClearField(_ context.Context, code string, field store.ClearableField) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failClear[code]; err != nil {
		return 0, err
	}
	rec, ok := m.recs[code]
	if !ok {
		return 0, nil
	}
	switch field {
	case store.FieldPayload:
		rec.Payload = nil
	case store.FieldCloudRef:
		rec.CloudRef = nil
	default:
		return 0, fmt.Errorf("unknown clearable field %v", field)
	}
	m.recs[code] = rec
	return 1, nil
}

func (m *memStore) get(code string) (photo.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[code]
	return copyRecord(rec), ok
}

// memBlob is an in-memory blob.Store. References are "mem://<key>".
type memBlob struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut map[string]error
}

var _ blob.Store = (*memBlob)(nil)

func newMemBlob() *memBlob {
	return &memBlob{
		objects: make(map[string][]byte),
		failPut: make(map[string]error),
	}
}

func (m *memBlob) Put(_ context.Context, key string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failPut[key]; err != nil {
		return "", err
	}
	m.objects[key] = append([]byte(nil), data...)
	return "mem://" + key, nil
}

func (m *memBlob) Get(_ context.Context, ref string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[refKey(ref)]
	if !ok {
		return nil, blob.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *memBlob) Exists(_ context.Context, ref string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[refKey(ref)]
	return ok, nil
}

func (m *memBlob) Delete(_ context.Context, ref string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := refKey(ref)
	_, ok := m.objects[key]
	delete(m.objects, key)
	return ok, nil
}

func refKey(ref string) string {
	if len(ref) > 6 && ref[:6] == "mem://" {
		return ref[6:]
	}
	return ref
}

// failingFiles wraps a FileStore and fails writes for selected export
// file names.
type failingFiles struct {
	fs.FileStore
	failWrite map[string]error
}

func (f *failingFiles) WriteExportFile(folder, fileName string, data []byte) error {
	if err := f.failWrite[fileName]; err != nil {
		return err
	}
	return f.FileStore.WriteExportFile(folder, fileName, data)
}

// hookedFiles runs a callback before each export write, to interleave
// store mutations with an in-flight pass.
type hookedFiles struct {
	fs.FileStore
	beforeWrite func(fileName string)
}

func (h *hookedFiles) WriteExportFile(folder, fileName string, data []byte) error {
	if h.beforeWrite != nil {
		h.beforeWrite(fileName)
	}
	return h.FileStore.WriteExportFile(folder, fileName, data)
}
