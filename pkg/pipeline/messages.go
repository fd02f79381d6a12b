package pipeline

import (
	"fmt"
	"strings"

	"github.com/haivivi/accentid/pkg/accent"
)

// LowConfidenceNote is appended to explanations below the threshold.
const LowConfidenceNote = " The confidence is somewhat low, which could indicate a different English " +
	"accent not in the training set, a non-native English speaker, " +
	"or challenges with audio quality/clarity."

// Message returns the user-facing text for a failed run.
func Message(err error) string {
	if err == nil {
		return ""
	}
	switch accent.KindOf(err) {
	case accent.UserInputError:
		return "Please enter a video URL."
	case accent.ModelUnavailable:
		return "Model or Label Encoder could not be loaded. Please check server logs."
	case accent.DownloadFailure:
		return "Failed to download or extract audio from the provided URL. " +
			"Please check the URL and ensure it's a publicly accessible video/audio."
	case accent.DecodeFailure:
		return "Could not load or prepare the audio file."
	case accent.FeatureFailure:
		return "Could not extract features from the audio."
	case accent.PredictionFailure:
		return "Could not analyze the accent. Prediction failed."
	default:
		return fmt.Sprintf("An unexpected error occurred: %v", err)
	}
}

// Explain builds the result explanation and reports whether the confidence
// is below threshold.
func Explain(label string, confidence float64, classes []string, threshold float64) (string, bool) {
	text := fmt.Sprintf("The speaker's accent is classified as **%s** with a confidence of **%.2f%%**. "+
		"This model is trained primarily on %s English accents.",
		label, confidence, strings.Join(classes, ", "))
	low := confidence < threshold
	if low {
		text += LowConfidenceNote
	}
	return text, low
}
