package memory

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/agentkit-dev/agentkit"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore stores one document per message under
// sessions/<session-id>/messages, ordered by an insertion sequence field.
type Firestore struct {
	client *firestore.Client
}

// NewFirestore creates a Firestore-backed store for the given project.
func NewFirestore(ctx context.Context, projectID string) (*Firestore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return &Firestore{client: client}, nil
}

// NewFirestoreFromClient wraps an existing client (emulator tests).
func NewFirestoreFromClient(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

// Close releases the underlying client.
func (f *Firestore) Close() error {
	return f.client.Close()
}

type firestoreMessage struct {
	Seq        int64          `firestore:"seq"`
	Role       string         `firestore:"role"`
	Content    string         `firestore:"content"`
	Name       string         `firestore:"name,omitempty"`
	ToolCallID string         `firestore:"tool_call_id,omitempty"`
	Timestamp  time.Time      `firestore:"timestamp"`
	Metadata   map[string]any `firestore:"metadata,omitempty"`
}

func (f *Firestore) messages(sessionID string) *firestore.CollectionRef {
	return f.client.Collection("sessions").Doc(sessionID).Collection("messages")
}

func (f *Firestore) nextSeq(ctx context.Context, sessionID string) (int64, error) {
	iter := f.messages(sessionID).OrderBy("seq", firestore.Desc).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return 0, nil
	}
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return 0, nil
		}
		return 0, fmt.Errorf("read sequence: %w", err)
	}

	var m firestoreMessage
	if err := doc.DataTo(&m); err != nil {
		return 0, fmt.Errorf("decode sequence: %w", err)
	}
	return m.Seq + 1, nil
}

// Append adds messages in order, assigning consecutive sequence numbers.
func (f *Firestore) Append(ctx context.Context, sessionID string, messages []agentkit.Message) error {
	if len(messages) == 0 {
		return nil
	}

	seq, err := f.nextSeq(ctx, sessionID)
	if err != nil {
		return err
	}

	writer := f.client.BulkWriter(ctx)
	for i, m := range messages {
		ts := m.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		doc := firestoreMessage{
			Seq:        seq + int64(i),
			Role:       string(m.Role),
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
			Timestamp:  ts,
			Metadata:   m.Metadata,
		}
		if _, err := writer.Create(f.messages(sessionID).NewDoc(), doc); err != nil {
			return fmt.Errorf("queue message write: %w", err)
		}
	}
	writer.End()
	return nil
}

// Load returns at most limit most-recent messages in chronological order.
func (f *Firestore) Load(ctx context.Context, sessionID string, limit int) ([]agentkit.Message, error) {
	query := f.messages(sessionID).OrderBy("seq", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var newestFirst []agentkit.Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil, nil
			}
			return nil, fmt.Errorf("load session: %w", err)
		}

		var m firestoreMessage
		if err := doc.DataTo(&m); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		newestFirst = append(newestFirst, agentkit.Message{
			Role:       agentkit.Role(m.Role),
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
			Timestamp:  m.Timestamp,
			Metadata:   m.Metadata,
		})
	}

	out := make([]agentkit.Message, len(newestFirst))
	for i, m := range newestFirst {
		out[len(out)-1-i] = m
	}
	return out, nil
}

// SummarizeIfNeeded compacts the session past the given budget.
func (f *Firestore) SummarizeIfNeeded(ctx context.Context, sessionID string, budget int) error {
	messages, err := f.Load(ctx, sessionID, 0)
	if err != nil {
		return err
	}

	compacted, changed := compact(messages, budget)
	if !changed {
		return nil
	}

	if err := f.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	return f.Append(ctx, sessionID, compacted)
}

// DeleteSession removes every message document for a session.
func (f *Firestore) DeleteSession(ctx context.Context, sessionID string) error {
	iter := f.messages(sessionID).Documents(ctx)
	defer iter.Stop()

	writer := f.client.BulkWriter(ctx)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("enumerate session: %w", err)
		}
		if _, err := writer.Delete(doc.Ref); err != nil {
			return fmt.Errorf("queue message delete: %w", err)
		}
	}
	writer.End()
	return nil
}

var _ Backend = (*Firestore)(nil)
