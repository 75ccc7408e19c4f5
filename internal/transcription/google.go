package transcription

import (
	"context"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
)

// CloudSampleRate is the sample rate assumed for raw LINEAR16 audio sent to Cloud Speech.
const CloudSampleRate = 16000

// GoogleCloud transcribes raw 16-bit PCM audio with Google Cloud Speech-to-Text
type GoogleCloud struct {
	client       *speech.Client
	recognize    func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)
	languageCode string
}

// NewGoogleCloud creates a Cloud Speech client using application default credentials
func NewGoogleCloud(ctx context.Context, languageCode string) (*GoogleCloud, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GoogleCloud{
		client: client,
		recognize: func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			return client.Recognize(ctx, req)
		},
		languageCode: languageCode,
	}, nil
}

// Recognize submits the audio synchronously and concatenates each result's top alternative
func (g *GoogleCloud) Recognize(ctx context.Context, audio []byte) (string, error) {
	resp, err := g.recognize(ctx, g.request(audio))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		b.WriteString(alts[0].GetTranscript())
	}
	return b.String(), nil
}

func (g *GoogleCloud) request(audio []byte) *speechpb.RecognizeRequest {
	return &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            CloudSampleRate,
			LanguageCode:               g.languageCode,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}
}

// Close releases the underlying gRPC connection
func (g *GoogleCloud) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}
