package cli

import "fmt"

func Run(args []string) error {
	if len(args) == 0 {
		printRootUsage()
		return nil
	}

	var err error
	switch args[0] {
	case "generate":
		err = runGenerate(args[1:])
	case "status":
		err = runStatus(args[1:])
	case "download":
		err = runDownload(args[1:])
	case "delete":
		err = runDelete(args[1:])
	case "queue":
		err = runQueue(args[1:])
	case "serve":
		err = runServe(args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}

	return err
}

func printRootUsage() {
	fmt.Println("clipforge: script-to-video generation client")
	fmt.Println()
	fmt.Println("Quick Start:")
	fmt.Println("  clipforge serve &")
	fmt.Println("  clipforge generate")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  generate  interactive generation wizard (submit + live progress)")
	fmt.Println("  status    one-shot status fetch for a job id")
	fmt.Println("  download  print download links for a completed job")
	fmt.Println("  delete    delete a job and its artifacts")
	fmt.Println("  queue     service queue statistics")
	fmt.Println("  serve     run a local stub of the generation service")
	fmt.Println()
	fmt.Println("Notes:")
	fmt.Println("  - Use --json on commands for machine-readable output")
	fmt.Println("  - Settings live in ~/.config/clipforge/config.yaml;")
	fmt.Println("    CLIPFORGE_API_URL / CLIPFORGE_AUTH_TOKEN override them")
}
