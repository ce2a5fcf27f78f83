package fork

import (
	"encoding/json"
	"path/filepath"
	"sort"

	"github.com/cuemby/factengine/pkg/fact"
	bolt "go.etcd.io/bbolt"
)

var bucketOutbox = []byte("outbox")

// outboxEntry is the on-disk record for one envelope awaiting remote
// delivery, ordered by Seq so the drain loop replays in save order.
type outboxEntry struct {
	Seq      int64       `json:"seq"`
	Envelope fact.Envelope `json:"envelope"`
}

// Outbox is a durable, content-addressed queue of envelopes awaiting
// remote delivery, backed by its own BoltDB file so it survives a
// process restart independent of the main fact store.
type Outbox struct {
	db *bolt.DB
}

// NewOutbox opens (creating if absent) the outbox file under dataDir.
func NewOutbox(dataDir string) (*Outbox, error) {
	db, err := bolt.Open(filepath.Join(dataDir, "outbox.db"), 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketOutbox)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Outbox{db: db}, nil
}

func (o *Outbox) Close() error { return o.db.Close() }

func entryKey(ref fact.Reference) []byte {
	return []byte(ref.Type + ":" + ref.Hash)
}

// Enqueue durably records envelopes as pending delivery. Enqueuing an
// envelope already present is a no-op, preserving its original
// sequence position.
func (o *Outbox) Enqueue(envelopes []fact.Envelope) error {
	return o.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOutbox)
		seq, _ := b.NextSequence()
		for _, env := range envelopes {
			ref, err := fact.ReferenceOf(env.Fact)
			if err != nil {
				return err
			}
			key := entryKey(ref)
			if b.Get(key) != nil {
				continue
			}
			entry := outboxEntry{Seq: int64(seq), Envelope: env}
			seq++
			data, err := json.Marshal(entry)
			if err != nil {
				return err
			}
			if err := b.Put(key, data); err != nil {
				return err
			}
		}
		// Persist the last sequence handed out so the next Enqueue
		// continues after this batch instead of reusing its numbers.
		return b.SetSequence(seq - 1)
	})
}

// Pending returns every queued envelope in enqueue order.
func (o *Outbox) Pending() ([]fact.Envelope, error) {
	var entries []outboxEntry
	err := o.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOutbox)
		return b.ForEach(func(_, v []byte) error {
			var e outboxEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			entries = append(entries, e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Seq < entries[j].Seq })

	out := make([]fact.Envelope, len(entries))
	for i, e := range entries {
		out[i] = e.Envelope
	}
	return out, nil
}

// Remove drops envelope from the queue after a successful remote ack.
func (o *Outbox) Remove(ref fact.Reference) error {
	return o.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketOutbox).Delete(entryKey(ref))
	})
}

// Len reports the number of envelopes currently queued, exported for
// pkg/metrics.
func (o *Outbox) Len() (int, error) {
	var n int
	err := o.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketOutbox).Stats().KeyN
		return nil
	})
	return n, err
}
