// Command responder-setup interactively builds a server configuration file
// for the responder command.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/simpletcp/responder/config"
)

const banner = "============================================================"

type prompter struct {
	in *bufio.Reader
}

func newPrompter() *prompter {
	return &prompter{in: bufio.NewReader(os.Stdin)}
}

// line prints the prompt and returns one trimmed input line. EOF yields an
// empty string so callers fall back to their defaults.
func (p *prompter) line(prompt string) string {
	fmt.Print(prompt)
	s, err := p.in.ReadString('\n')
	if err != nil && s == "" {
		return ""
	}
	return strings.TrimSpace(s)
}

func (p *prompter) yesNo(prompt string, def bool) bool {
	defStr := "y/N"
	if def {
		defStr = "Y/n"
	}
	for {
		switch strings.ToLower(p.line(fmt.Sprintf("%s [%s]: ", prompt, defStr))) {
		case "":
			return def
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
		fmt.Println("Please answer 'y' or 'n'")
	}
}

func (p *prompter) number(prompt string, min, max int) int {
	for {
		resp := p.line(prompt + ": ")
		value, err := strconv.Atoi(resp)
		if err != nil {
			fmt.Println("Please enter a valid number")
			continue
		}
		if value < min {
			fmt.Printf("Value must be at least %d\n", min)
			continue
		}
		if value > max {
			fmt.Printf("Value must be at most %d\n", max)
			continue
		}
		return value
	}
}

func (p *prompter) serverType() string {
	for {
		fmt.Println("\nServer types:")
		fmt.Println("  1. Echo server (echoes back received data)")
		fmt.Println("  2. Web server (serves HTTP content)")
		switch p.line("Select server type [1-2]: ") {
		case "1":
			return config.KindEcho
		case "2":
			return config.KindWeb
		}
		fmt.Println("Please enter 1 or 2")
	}
}

// multiline reads content lines until EOF (Ctrl+D).
func (p *prompter) multiline() string {
	fmt.Println("\nEnter content (press Ctrl+D when done):")
	var lines []string
	for {
		s, err := p.in.ReadString('\n')
		if s != "" {
			lines = append(lines, strings.TrimRight(s, "\n"))
		}
		if err != nil {
			break
		}
	}
	return strings.Join(lines, "\n")
}

func defaultHTML(port int) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <title>SimpleTCPResponder - Port %d</title>
</head>
<body>
    <h1>SimpleTCPResponder</h1>
    <p>This is a diagnostic web server running on port %d.</p>
</body>
</html>`, port, port)
}

func configureServer(p *prompter, num int, usedPorts map[int]bool) config.ServerSpec {
	fmt.Printf("\n%s\nConfiguring Server %d\n%s\n", banner, num, banner)

	kind := p.serverType()

	var port int
	for {
		port = p.number("Enter port number", 1, 65535)
		if !usedPorts[port] {
			break
		}
		fmt.Printf("Port %d is already in use by another server. Choose a different port.\n", port)
	}

	bind := p.line("Enter bind address [default: 0.0.0.0]: ")
	if bind == "" {
		bind = config.DefaultBindAddress
	}

	var content string
	if kind == config.KindWeb {
		fmt.Println("\nWeb server content options:")
		fmt.Println("  1. Enter custom text/HTML")
		fmt.Println("  2. Use default HTML page")
		if p.line("Select option [1-2]: ") == "1" {
			content = p.multiline()
		} else {
			content = defaultHTML(port)
		}
	}

	return config.ServerSpec{
		Kind:        kind,
		Port:        port,
		Content:     content,
		BindAddress: bind,
	}
}

func sequentialSpecs(startPort, count int, kind string) []config.ServerSpec {
	specs := make([]config.ServerSpec, 0, count)
	for i := 0; i < count; i++ {
		port := startPort + i
		spec := config.ServerSpec{
			Kind:        kind,
			Port:        port,
			BindAddress: config.DefaultBindAddress,
		}
		if kind == config.KindWeb {
			spec.Content = defaultHTML(port)
		}
		specs = append(specs, spec)
	}
	return specs
}

func listServers(cfg *config.Config) {
	fmt.Printf("\nLoaded %d server(s):\n", len(cfg.Servers))
	for i, s := range cfg.Servers {
		fmt.Printf("  %d. %s server on port %d\n", i+1, strings.ToUpper(s.Kind), s.Port)
	}
}

func main() {
	var (
		usePrefs string
		output   string
	)
	flag.StringVar(&usePrefs, "use-prefs", "", "inspect an existing configuration file and exit")
	flag.StringVar(&output, "output", "", "output configuration file path")
	flag.StringVar(&output, "o", "", "shorthand for -output")
	flag.Parse()

	configPath := output
	if configPath == "" {
		configPath = config.DefaultPath()
	}

	fmt.Printf("%s\nSimpleTCPResponder Setup\n%s\n", banner, banner)

	if usePrefs != "" {
		cfg, err := config.Load(usePrefs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %s\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nUsing existing configuration: %s\n", usePrefs)
		listServers(cfg)
		return
	}

	p := newPrompter()

	if _, err := os.Stat(configPath); err == nil {
		if p.yesNo(fmt.Sprintf("\nConfiguration file already exists at %s. Reuse it?", configPath), true) {
			cfg, err := config.Load(configPath)
			if err == nil {
				fmt.Printf("\nUsing existing configuration with %d server(s)\n", len(cfg.Servers))
				return
			}
			fmt.Printf("Error loading configuration: %s\n", err)
			fmt.Println("Creating new configuration...")
		}
	}

	fmt.Println("\nSetup modes:")
	fmt.Println("  1. Configure servers individually")
	fmt.Println("  2. Quick setup - multiple servers on sequential ports")
	mode := p.line("Select mode [1-2]: ")

	var specs []config.ServerSpec

	if mode == "2" {
		count := p.number("\nHow many servers?", 1, config.MaxServers)
		kind := p.serverType()
		startPort := p.number("Starting port number", 1, 65535-count)

		specs = sequentialSpecs(startPort, count, kind)
		fmt.Printf("\nCreated %d %s server(s) on ports %d-%d\n", count, kind, startPort, startPort+count-1)
	} else {
		count := p.number("\nHow many servers do you want to configure?", 1, config.MaxServers)

		usedPorts := make(map[int]bool)
		for i := 0; i < count; i++ {
			spec := configureServer(p, i+1, usedPorts)
			specs = append(specs, spec)
			usedPorts[spec.Port] = true
		}
	}

	cfg := &config.Config{Servers: specs}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "\nConfiguration error: %s\n", err)
		os.Exit(1)
	}

	if err := cfg.Save(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to save configuration: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n%s\n", banner)
	fmt.Printf("Configuration saved to: %s\n", configPath)
	fmt.Printf("Total servers configured: %d\n", len(specs))
	fmt.Println("\nTo start the servers, run:")
	fmt.Println("  responder")
	fmt.Println("  # or")
	fmt.Printf("  responder -config %s\n", configPath)
	fmt.Println(banner)
}
