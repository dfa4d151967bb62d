package sms

import "context"

type Provider interface {
	Send(ctx context.Context, to string, body string) error
}

type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, to string, body string) error {
	return nil
}
