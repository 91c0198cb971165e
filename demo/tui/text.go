package tui

// UI Text Constants
const (
	TextSubmitInstruction = "Press 's' to submit the request"

	TextFooterWaiting = "Press 's' to submit | Press 'q' to quit"
	TextFooterRunning = "Press 'q' to detach (the assembly keeps rendering)"
	TextFooterDone    = "←/→ select scene | 'r' regenerate its image | 'q' quit"
)
