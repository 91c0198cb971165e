package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

type job struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func TestTypedMessageHandler(t *testing.T) {
	var processed []string
	h := &TypedMessageHandler[job]{
		Validate: func(j *job) error {
			if j.Title == "" {
				return errors.New("title is required")
			}
			return nil
		},
		Process: func(_ context.Context, j *job) error {
			if j.ID == "boom" {
				return errors.New("processing failed")
			}
			processed = append(processed, j.ID)
			return nil
		},
		MarkRejected: true,
	}

	tests := []struct {
		name     string
		payload  string
		wantMark bool
		wantErr  bool
	}{
		{name: "valid message is processed", payload: `{"id":"a1","title":"Tides"}`, wantMark: true},
		{name: "bad json is skipped", payload: `{not json`, wantMark: true},
		{name: "invalid message is skipped", payload: `{"id":"a2"}`, wantMark: true},
		{name: "processing error is retried", payload: `{"id":"boom","title":"x"}`, wantMark: false, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mark, err := h.HandleMessage(context.Background(), "k", []byte(tt.payload))
			if mark != tt.wantMark {
				t.Errorf("shouldMark = %v, want %v", mark, tt.wantMark)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if len(processed) != 1 || processed[0] != "a1" {
		t.Errorf("processed = %v", processed)
	}
}

func TestTypedMessageHandlerKeepsRejectedWhenAsked(t *testing.T) {
	h := &TypedMessageHandler[job]{
		Process: func(context.Context, *job) error { return nil },
	}
	mark, err := h.HandleMessage(context.Background(), "k", []byte("nope"))
	if mark || err != nil {
		t.Errorf("got mark=%v err=%v, want false nil", mark, err)
	}
}

func TestProducerPublish(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var j job
		if err := json.Unmarshal(val, &j); err != nil {
			return err
		}
		if j.ID != "a1" {
			return errors.New("unexpected id " + j.ID)
		}
		return nil
	})
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewProducerWith(mock, "assembly-events")
	if err := p.Publish(context.Background(), "a1", job{ID: "a1", Title: "Tides"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := p.Publish(context.Background(), "a1", job{ID: "a1"}); !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Errorf("expected broker error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Publish(ctx, "a1", job{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context error, got %v", err)
	}

	if err := p.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
