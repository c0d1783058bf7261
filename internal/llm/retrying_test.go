package llm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/nfrund/tafep-voice/internal/llm"
	"github.com/nfrund/tafep-voice/internal/llm/llmmock"
	"github.com/nfrund/tafep-voice/internal/retry"
)

func fastRetry() *retry.ExponentialBackoffRetryer {
	return retry.New(retry.WithDelays(time.Millisecond, time.Millisecond), retry.WithoutJitter())
}

func TestRetrying_RetriesTransientFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := llmmock.NewMockProvider(ctrl)

	gomock.InOrder(
		p.EXPECT().Generate(gomock.Any(), "sys", "prompt").Return("", errors.New("502 bad gateway")),
		p.EXPECT().Generate(gomock.Any(), "sys", "prompt").Return("ok", nil),
	)

	out, err := llm.WithRetry(p, fastRetry()).Generate(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestRetrying_StopsOnPermanentError(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := llmmock.NewMockProvider(ctrl)

	p.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).Return("", retry.Stop(llm.ErrEmptyResponse)).Times(1)

	_, err := llm.WithRetry(p, fastRetry()).Generate(context.Background(), "sys", "prompt")
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}

func TestRetrying_DelegatesMetadata(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := llmmock.NewMockProvider(ctrl)
	p.EXPECT().Name().Return("mock")
	p.EXPECT().Flavor().Return(llm.FlavorXML)

	r := llm.WithRetry(p, fastRetry())
	assert.Equal(t, "mock", r.Name())
	assert.Equal(t, llm.FlavorXML, r.Flavor())
}
