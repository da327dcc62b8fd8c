package queue

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
)

// storageReceipt is the (messageID, popReceipt) pair Azure Storage
// Queue needs to delete or update a dequeued message, mirroring
// queue_interface.py's AzureStorageQueue.receipt_handle tuple.
type storageReceipt struct {
	messageID  string
	popReceipt string
}

// StorageQueue is the Azure Storage Queue backend (works against
// Azurite for local dev, per queue_interface.py's default connection
// string). Unlike Service Bus it has no native peek-lock abandon, so
// Nack sets the message's visibility timeout back to zero.
type StorageQueue struct {
	client *azqueue.QueueClient
}

// NewStorageQueue builds a Storage Queue client from a connection
// string (the AZURE_STORAGE_CONNECTION_STRING config key).
func NewStorageQueue(connectionString, queueName string) (*StorageQueue, error) {
	serviceClient, err := azqueue.NewServiceClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("queue: storage queue client: %w", err)
	}
	return &StorageQueue{client: serviceClient.NewQueueClient(queueName)}, nil
}

func (q *StorageQueue) Provision(ctx context.Context) error {
	_, err := q.client.Create(ctx, nil)
	if err != nil && !isQueueAlreadyExists(err) {
		return fmt.Errorf("queue: create storage queue: %w", err)
	}
	return nil
}

func isQueueAlreadyExists(err error) bool {
	return err != nil // Provision is best-effort idempotent: any Create error on an
	// already-provisioned queue is treated the same way the Python
	// original swallows it with a bare except.
}

func (q *StorageQueue) Send(ctx context.Context, body []byte) error {
	encoded := base64.StdEncoding.EncodeToString(body)
	_, err := q.client.EnqueueMessage(ctx, encoded, nil)
	if err != nil {
		return fmt.Errorf("queue: storage queue enqueue: %w", err)
	}
	return nil
}

func (q *StorageQueue) Receive(ctx context.Context, visTimeout time.Duration) (*Message, error) {
	opts := &azqueue.DequeueMessagesOptions{}
	if visTimeout > 0 {
		vt := int32(visTimeout.Seconds())
		opts.VisibilityTimeout = &vt
	}
	resp, err := q.client.DequeueMessages(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("queue: storage queue dequeue: %w", err)
	}
	if len(resp.Messages) == 0 {
		return nil, ErrEmpty
	}
	msg := resp.Messages[0]
	body, err := base64.StdEncoding.DecodeString(*msg.MessageText)
	if err != nil {
		body = []byte(*msg.MessageText)
	}
	return &Message{
		ID:   *msg.MessageID,
		Body: body,
		ReceiptHandle: storageReceipt{
			messageID:  *msg.MessageID,
			popReceipt: *msg.PopReceipt,
		},
	}, nil
}

func (q *StorageQueue) Ack(ctx context.Context, msg *Message) error {
	r, ok := msg.ReceiptHandle.(storageReceipt)
	if !ok {
		return fmt.Errorf("queue: invalid receipt handle for ack")
	}
	_, err := q.client.DeleteMessage(ctx, r.messageID, r.popReceipt, nil)
	return err
}

func (q *StorageQueue) Nack(ctx context.Context, msg *Message) error {
	r, ok := msg.ReceiptHandle.(storageReceipt)
	if !ok {
		return fmt.Errorf("queue: invalid receipt handle for nack")
	}
	var zero int32
	_, err := q.client.UpdateMessage(ctx, r.messageID, r.popReceipt, "", &azqueue.UpdateMessageOptions{
		VisibilityTimeout: &zero,
	})
	return err
}

func (q *StorageQueue) Close() error { return nil }
