// Package firestore mirrors budget documents into Cloud Firestore, one
// document per user under users_finance/{uid}.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	gfs "cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"financia/internal/core"
	"financia/internal/snapshot"
)

const DefaultCollection = "users_finance"

// record is the stored shape. The payload is the encoded snapshot so the
// cloud copy always matches what the local store decodes.
type record struct {
	SchemaVersion int       `firestore:"schemaVersion"`
	Revision      int64     `firestore:"revision"`
	Payload       string    `firestore:"payload"`
	LastUpdated   time.Time `firestore:"lastUpdated"`
}

type Client struct {
	fs         *gfs.Client
	collection string
}

// NewClient connects to projectID. An empty credentialsFile falls back to
// application default credentials.
func NewClient(ctx context.Context, projectID, credentialsFile, collection string) (*Client, error) {
	if projectID == "" {
		return nil, errors.New("firestore project id is required")
	}
	if collection == "" {
		collection = DefaultCollection
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	fs, err := gfs.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firestore client: %w", err)
	}
	return &Client{fs: fs, collection: collection}, nil
}

func (c *Client) Close() error {
	return c.fs.Close()
}

// SaveState writes doc unless the cloud already holds a newer revision.
func (c *Client) SaveState(ctx context.Context, userID string, doc snapshot.Document) error {
	rec, err := toRecord(doc)
	if err != nil {
		return err
	}
	ref := c.fs.Collection(c.collection).Doc(userID)

	err = c.fs.RunTransaction(ctx, func(ctx context.Context, tx *gfs.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if snap != nil && snap.Exists() {
			var cur record
			if err := snap.DataTo(&cur); err != nil {
				return fmt.Errorf("read stored record: %w", err)
			}
			if cur.Revision > rec.Revision {
				return fmt.Errorf("save state for %s at revision %d: %w", userID, doc.Revision, core.ErrStaleRevision)
			}
		}
		return tx.Set(ref, rec)
	})
	if err != nil {
		return fmt.Errorf("firestore save %s/%s: %w", c.collection, userID, err)
	}
	return nil
}

// LoadState reads the user's document. found is false when none exists.
func (c *Client) LoadState(ctx context.Context, userID string) (snapshot.Document, bool, error) {
	snap, err := c.fs.Collection(c.collection).Doc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return snapshot.Document{}, false, nil
	}
	if err != nil {
		return snapshot.Document{}, false, fmt.Errorf("firestore load %s/%s: %w", c.collection, userID, err)
	}
	var rec record
	if err := snap.DataTo(&rec); err != nil {
		return snapshot.Document{}, false, fmt.Errorf("firestore decode %s/%s: %w", c.collection, userID, err)
	}
	doc, err := fromRecord(rec)
	if err != nil {
		return snapshot.Document{}, false, err
	}
	return doc, true, nil
}

func toRecord(doc snapshot.Document) (record, error) {
	data, err := snapshot.Encode(doc)
	if err != nil {
		return record{}, err
	}
	updated := doc.LastUpdated
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	return record{
		SchemaVersion: snapshot.SchemaVersion,
		Revision:      int64(doc.Revision),
		Payload:       string(data),
		LastUpdated:   updated,
	}, nil
}

func fromRecord(rec record) (snapshot.Document, error) {
	doc, err := snapshot.Decode([]byte(rec.Payload))
	if err != nil {
		return snapshot.Document{}, fmt.Errorf("decode firestore payload: %w", err)
	}
	return doc, nil
}
