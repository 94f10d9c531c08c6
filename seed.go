package main

import (
	"fmt"
	"strings"
)

// seedBlock is one fabricated loop, matching what the simulation writes
func seedBlock(loop int, ts string, sender, receiver AgentSettings) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n=== LOOP %d ===\n", loop)
	fmt.Fprintf(&b, "[%s] Coordinator: Initiating Loop %d\n", ts, loop)
	fmt.Fprintf(&b, "[%s] Coordinator: Message files cleared\n", ts)
	fmt.Fprintf(&b, "%s: %s\n", sender.Name, sender.Token)
	fmt.Fprintf(&b, "[%s] Coordinator: %s message confirmed, launching %s\n", ts, sender.Name, receiver.Name)
	fmt.Fprintf(&b, "%s: %s\n", receiver.Name, receiver.Token)
	fmt.Fprintf(&b, "[%s] Coordinator: Loop %d completed successfully", ts, loop)
	return b.String()
}

// Seed appends a synthetic transcript for loops from..to followed by the
// canned closing report. Nothing is executed; every figure is a constant.
func Seed(chatLog *ChatLog, settings *Settings, from, to int) error {
	if from <= 0 || to < from {
		return fmt.Errorf("invalid loop range %d..%d", from, to)
	}

	var b strings.Builder
	for loop := from; loop <= to; loop++ {
		b.WriteString(seedBlock(loop, chatLog.Timestamp(), settings.Agents.Sender, settings.Agents.Receiver))
	}

	report, err := SeedReport{
		CompletedAt:   chatLog.now().Format(reportTimeFormat),
		SenderToken:   settings.Agents.Sender.Token,
		ReceiverToken: settings.Agents.Receiver.Token,
	}.Render()
	if err != nil {
		return err
	}
	b.WriteString("\n")
	b.WriteString(report)

	return chatLog.Append(b.String())
}
