package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

// ServiceBusQueue is the Azure Service Bus backend, a direct port of
// queue_interface.py's AzureServiceBusQueue onto the azservicebus SDK's
// peek-lock receive mode (ack = complete, nack = abandon).
type ServiceBusQueue struct {
	client   *azservicebus.Client
	queue    string
	sender   *azservicebus.Sender
	receiver *azservicebus.Receiver
}

// NewServiceBusQueue builds a Service Bus client from a connection
// string (the AZURE_SERVICEBUS_CONNECTION_STRING config key).
func NewServiceBusQueue(connectionString, queueName string) (*ServiceBusQueue, error) {
	client, err := azservicebus.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("queue: servicebus client: %w", err)
	}
	return &ServiceBusQueue{client: client, queue: queueName}, nil
}

func (q *ServiceBusQueue) Provision(ctx context.Context) error {
	sender, err := q.client.NewSender(q.queue, nil)
	if err != nil {
		return fmt.Errorf("queue: servicebus sender: %w", err)
	}
	receiver, err := q.client.NewReceiverForQueue(q.queue, &azservicebus.ReceiverOptions{
		ReceiveMode: azservicebus.ReceiveModePeekLock,
	})
	if err != nil {
		sender.Close(ctx)
		return fmt.Errorf("queue: servicebus receiver: %w", err)
	}
	q.sender = sender
	q.receiver = receiver
	return nil
}

func (q *ServiceBusQueue) Send(ctx context.Context, body []byte) error {
	return q.sender.SendMessage(ctx, &azservicebus.Message{Body: body}, nil)
}

func (q *ServiceBusQueue) Receive(ctx context.Context, visTimeout time.Duration) (*Message, error) {
	rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	messages, err := q.receiver.ReceiveMessages(rctx, 1, nil)
	if err != nil {
		return nil, fmt.Errorf("queue: servicebus receive: %w", err)
	}
	if len(messages) == 0 {
		return nil, ErrEmpty
	}
	msg := messages[0]
	return &Message{ID: msg.MessageID, Body: msg.Body, ReceiptHandle: msg}, nil
}

func (q *ServiceBusQueue) Ack(ctx context.Context, msg *Message) error {
	sbMsg, ok := msg.ReceiptHandle.(*azservicebus.ReceivedMessage)
	if !ok {
		return fmt.Errorf("queue: invalid receipt handle for ack")
	}
	return q.receiver.CompleteMessage(ctx, sbMsg, nil)
}

func (q *ServiceBusQueue) Nack(ctx context.Context, msg *Message) error {
	sbMsg, ok := msg.ReceiptHandle.(*azservicebus.ReceivedMessage)
	if !ok {
		return fmt.Errorf("queue: invalid receipt handle for nack")
	}
	return q.receiver.AbandonMessage(ctx, sbMsg, nil)
}

func (q *ServiceBusQueue) Close() error {
	ctx := context.Background()
	if q.receiver != nil {
		q.receiver.Close(ctx)
	}
	if q.sender != nil {
		q.sender.Close(ctx)
	}
	return q.client.Close(ctx)
}
