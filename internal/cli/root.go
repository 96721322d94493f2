package cli

import "fmt"

func Run(args []string) error {
	if len(args) == 0 {
		printRootUsage()
		return nil
	}

	switch args[0] {
	case "run":
		return runExtract(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "compose":
		return runCompose(args[1:])
	case "results":
		return runResults(args[1:])
	case "doctor":
		return runDoctor(args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printRootUsage() {
	fmt.Println("yt-clip-extractor: resilient YouTube clip extraction pipeline")
	fmt.Println()
	fmt.Println("Quick Start:")
	fmt.Println("  yt-clip-extractor compose --output request.json")
	fmt.Println("  yt-clip-extractor validate --input request.json")
	fmt.Println("  yt-clip-extractor run --input request.json")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run       extract the requested clips with fallback and resume")
	fmt.Println("  validate  check a request file without touching the network")
	fmt.Println("  compose   interactive wizard that writes a request file")
	fmt.Println("  results   show the results of the latest (or a named) run")
	fmt.Println("  doctor    run dependency and filesystem preflight checks")
	fmt.Println()
	fmt.Println("Notes:")
	fmt.Println("  - Use --json on commands for machine-readable output")
	fmt.Println("  - An interrupted run resumes automatically when rerun with the same video")
}
