package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// renderAnswer prints the final answer: rendered Markdown on a terminal,
// plain text when piped.
func renderAnswer(answer string) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Println(answer)
		return
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(getTermWidth()),
	)
	if err != nil {
		fmt.Println(answer)
		return
	}

	rendered, err := renderer.Render(answer)
	if err != nil {
		fmt.Println(answer)
		return
	}
	fmt.Print(rendered)
}

func getTermWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 || width > 120 {
		return 100
	}
	return width
}
