package transcription

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleCloudRequestAndConcatenation(t *testing.T) {
	var got *speechpb.RecognizeRequest
	g := &GoogleCloud{
		languageCode: "es-ES",
		recognize: func(_ context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			got = req
			return &speechpb.RecognizeResponse{
				Results: []*speechpb.SpeechRecognitionResult{
					{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "Hola, "}, {Transcript: "Ola"}}},
					{},
					{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "necesito ayuda."}}},
				},
			}, nil
		},
	}

	text, err := g.Recognize(context.Background(), []byte{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, "Hola, necesito ayuda.", text)

	require.NotNil(t, got)
	cfg := got.GetConfig()
	assert.Equal(t, speechpb.RecognitionConfig_LINEAR16, cfg.GetEncoding())
	assert.Equal(t, int32(CloudSampleRate), cfg.GetSampleRateHertz())
	assert.Equal(t, "es-ES", cfg.GetLanguageCode())
	assert.True(t, cfg.GetEnableAutomaticPunctuation())
	assert.Equal(t, []byte{1, 2, 3, 4}, got.GetAudio().GetContent())
}

func TestGoogleCloudPropagatesError(t *testing.T) {
	g := &GoogleCloud{
		recognize: func(context.Context, *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			return nil, errors.New("permission denied")
		},
	}

	_, err := g.Recognize(context.Background(), []byte{1})
	assert.EqualError(t, err, "permission denied")
	assert.NoError(t, g.Close())
}
