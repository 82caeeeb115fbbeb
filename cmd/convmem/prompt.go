package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/smallnest/convmem/memory"
)

const defaultNumQuestions = 10

// chooser reads interactive answers from the operator
type chooser struct {
	in  *bufio.Scanner
	out io.Writer
}

func newChooser(in io.Reader, out io.Writer) *chooser {
	return &chooser{in: bufio.NewScanner(in), out: out}
}

func (c *chooser) ask(prompt string) string {
	fmt.Fprint(c.out, prompt)
	if !c.in.Scan() {
		return ""
	}
	return strings.TrimSpace(c.in.Text())
}

// strategy lists the strategies by number. Anything that is not a listed
// number selects trimming.
func (c *chooser) strategy() string {
	names := memory.StrategyNames()
	fmt.Fprintln(c.out, "Available memory strategies:")
	for i, name := range names {
		fmt.Fprintf(c.out, "%d: %s\n", i+1, name)
	}

	choice := c.ask("Select a memory strategy by number (default = trimming): ")
	if n, err := strconv.Atoi(choice); err == nil && n >= 1 && n <= len(names) {
		return names[n-1]
	}
	return memory.Trimming{}.Name()
}

// numQuestions asks how many questions to run, capped at max
func (c *chooser) numQuestions(max int) int {
	answer := c.ask(fmt.Sprintf("How many questions to process? (max = %d, default = %d): ", max, defaultNumQuestions))
	return clampQuestions(answer, max)
}

func clampQuestions(answer string, max int) int {
	n, err := strconv.Atoi(answer)
	if err != nil || n <= 0 {
		n = defaultNumQuestions
	}
	if n > max {
		n = max
	}
	return n
}
