package recommend

// ToneInstructions returns the coaching-voice instruction for an athlete's
// 0-100 coaching tone spectrum setting.
func ToneInstructions(spectrum int) string {
	switch {
	case spectrum <= 25:
		return "Use a casual, friendly tone. Keep it light and conversational, like a training buddy."
	case spectrum <= 50:
		return "Use a supportive, encouraging tone. Validate effort and frame setbacks constructively."
	case spectrum <= 75:
		return "Use a motivational, energetic tone. Push for effort while staying positive."
	default:
		return "Use an analytical, data-driven tone. Lead with the numbers and their physiological implications."
	}
}
