// Package cli provides shell completion script generation for various shells.
package cli

import (
	"fmt"
	"io"
	"strings"
)

// GenerateCompletion generates a shell completion script for the specified shell.
//
// Parameters:
//   - out: The writer to output the completion script.
//   - shell: The shell type ("bash", "zsh", "fish", "powershell").
//   - algorithms: List of available algorithm variant names.
//   - libraries: List of registered arbitrary-precision backend names.
//
// Returns:
//   - error: An error if the shell is not supported.
func GenerateCompletion(out io.Writer, shell string, algorithms, libraries []string) error {
	switch shell {
	case "bash":
		return generateBashCompletion(out, algorithms, libraries)
	case "zsh":
		return generateZshCompletion(out, algorithms, libraries)
	case "fish":
		return generateFishCompletion(out, algorithms, libraries)
	case "powershell", "ps":
		return generatePowerShellCompletion(out, algorithms, libraries)
	default:
		return fmt.Errorf("unsupported shell: %s (accepted values: bash, zsh, fish, powershell)", shell)
	}
}

// psQuoted renders a word list as PowerShell string literals.
func psQuoted(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = fmt.Sprintf("'%s'", w)
	}
	return strings.Join(quoted, ", ")
}

// generateBashCompletion generates a Bash completion script.
func generateBashCompletion(out io.Writer, algorithms, libraries []string) error {
	script := `# Bash completion script for picalc
# Add this to your ~/.bashrc or ~/.bash_completion

_picalc_completions() {
    local cur prev opts algorithms libraries
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    # Main options
    opts="--help -h --version --lib --algorithm --algo --precision --threads --procs --rank --nats --embed-nats --run --timeout --metrics-addr --csv --json -v --quiet -q --no-color --output -o --completion"

    # Available algorithm variants
    algorithms="%s all"

    # Available arbitrary-precision backends
    libraries="%s"

    case "${prev}" in
        --algorithm|--algo)
            COMPREPLY=( $(compgen -W "${algorithms}" -- "${cur}") )
            return 0
            ;;
        --lib)
            COMPREPLY=( $(compgen -W "${libraries}" -- "${cur}") )
            return 0
            ;;
        --completion)
            COMPREPLY=( $(compgen -W "bash zsh fish powershell" -- "${cur}") )
            return 0
            ;;
        --output|-o)
            # File/directory completion
            COMPREPLY=( $(compgen -f -- "${cur}") )
            return 0
            ;;
        --precision)
            COMPREPLY=( $(compgen -W "1000 10000 100000 1000000" -- "${cur}") )
            return 0
            ;;
        --threads)
            COMPREPLY=( $(compgen -W "1 2 4 8 16" -- "${cur}") )
            return 0
            ;;
        --procs)
            COMPREPLY=( $(compgen -W "1 2 4 8" -- "${cur}") )
            return 0
            ;;
        --nats)
            COMPREPLY=( $(compgen -W "nats://127.0.0.1:4222" -- "${cur}") )
            return 0
            ;;
        --metrics-addr)
            COMPREPLY=( $(compgen -W ":9090 127.0.0.1:9090" -- "${cur}") )
            return 0
            ;;
        --timeout)
            COMPREPLY=( $(compgen -W "1m 5m 10m 30m 1h" -- "${cur}") )
            return 0
            ;;
    esac

    if [[ "${cur}" == -* ]]; then
        COMPREPLY=( $(compgen -W "${opts}" -- "${cur}") )
        return 0
    fi
}

complete -F _picalc_completions picalc
`
	_, err := fmt.Fprintf(out, script, strings.Join(algorithms, " "), strings.Join(libraries, " "))
	return err
}

// generateZshCompletion generates a Zsh completion script.
func generateZshCompletion(out io.Writer, algorithms, libraries []string) error {
	script := `#compdef picalc

# Zsh completion script for picalc
# Add this to your ~/.zshrc or place in $fpath

_picalc() {
    local -a algorithms libraries
    algorithms=(%s all)
    libraries=(%s)

    _arguments -s \
        '(-h --help)'{-h,--help}'[Show help message]' \
        '--version[Show version information]' \
        '--lib[Arbitrary-precision backend]:library:($libraries)' \
        '--algorithm[Algorithm variant to run]:algorithm:($algorithms)' \
        '--algo[Alias for --algorithm]:algorithm:($algorithms)' \
        '--precision[Decimal digits of Pi to target]:digits:(1000 10000 100000 1000000)' \
        '--threads[Worker goroutines per process]:threads:(1 2 4 8 16)' \
        '--procs[Cooperating processes in the run]:procs:(1 2 4 8)' \
        '--rank[Rank of this process]:rank:' \
        '--nats[NATS broker URL]:url:(nats\://127.0.0.1\:4222)' \
        '--embed-nats[Start an embedded NATS broker (rank 0 only)]' \
        '--run[Run identifier shared by all processes]:id:' \
        '--timeout[Maximum execution time]:duration:(1m 5m 10m 30m 1h)' \
        '--metrics-addr[Listen address for the metrics endpoint]:addr:(\:9090)' \
        '--csv[Output the result as a CSV row]' \
        '--json[Output in JSON format]' \
        '-v[Display the full digit string]' \
        '--no-color[Disable colored output]' \
        '(-o --output)'{-o,--output}'[Output file path]:file:_files' \
        '(-q --quiet)'{-q,--quiet}'[Quiet mode for scripts]' \
        '--completion[Generate completion script]:shell:(bash zsh fish powershell)'
}

_picalc "$@"
`
	_, err := fmt.Fprintf(out, script, strings.Join(algorithms, " "), strings.Join(libraries, " "))
	return err
}

// generateFishCompletion generates a Fish completion script.
func generateFishCompletion(out io.Writer, algorithms, libraries []string) error {
	script := `# Fish completion script for picalc
# Add this to ~/.config/fish/completions/picalc.fish

# Disable file completion by default
complete -c picalc -f

# Help and version
complete -c picalc -s h -l help -d 'Show help message'
complete -c picalc -l version -d 'Show version information'

# Run parameters
complete -c picalc -l lib -d 'Arbitrary-precision backend' -xa '%s'
complete -c picalc -l algorithm -d 'Algorithm variant to run' -xa '%s all'
complete -c picalc -l algo -d 'Alias for --algorithm' -xa '%s all'
complete -c picalc -l precision -d 'Decimal digits of Pi to target' -xa '1000 10000 100000 1000000'
complete -c picalc -l timeout -d 'Maximum execution time' -xa '1m 5m 10m 30m 1h'

# Topology
complete -c picalc -l threads -d 'Worker goroutines per process' -xa '1 2 4 8 16'
complete -c picalc -l procs -d 'Cooperating processes in the run' -xa '1 2 4 8'
complete -c picalc -l rank -d 'Rank of this process' -x
complete -c picalc -l nats -d 'NATS broker URL' -xa 'nats://127.0.0.1:4222'
complete -c picalc -l embed-nats -d 'Start an embedded NATS broker (rank 0 only)'
complete -c picalc -l run -d 'Run identifier shared by all processes' -x

# Output options
complete -c picalc -l csv -d 'Output the result as a CSV row'
complete -c picalc -l json -d 'Output in JSON format'
complete -c picalc -s v -d 'Display the full digit string'
complete -c picalc -s o -l output -d 'Output file path' -rF
complete -c picalc -s q -l quiet -d 'Quiet mode for scripts'
complete -c picalc -l no-color -d 'Disable colored output'

# Observability
complete -c picalc -l metrics-addr -d 'Listen address for the metrics endpoint' -xa ':9090'

# Completion
complete -c picalc -l completion -d 'Generate completion script' -xa 'bash zsh fish powershell'
`
	algoList := strings.Join(algorithms, " ")
	_, err := fmt.Fprintf(out, script, strings.Join(libraries, " "), algoList, algoList)
	return err
}

// generatePowerShellCompletion generates a PowerShell completion script.
func generatePowerShellCompletion(out io.Writer, algorithms, libraries []string) error {
	script := `# PowerShell completion script for picalc
# Add this to your $PROFILE

$picalcAlgorithms = @(%s, 'all')
$picalcLibraries = @(%s)

Register-ArgumentCompleter -CommandName 'picalc' -Native -ScriptBlock {
    param($wordToComplete, $commandAst, $cursorPosition)

    $options = @(
        @{Name = '-h'; Description = 'Show help message' }
        @{Name = '--help'; Description = 'Show help message' }
        @{Name = '--version'; Description = 'Show version information' }
        @{Name = '--lib'; Description = 'Arbitrary-precision backend' }
        @{Name = '--algorithm'; Description = 'Algorithm variant to run' }
        @{Name = '--algo'; Description = 'Alias for --algorithm' }
        @{Name = '--precision'; Description = 'Decimal digits of Pi to target' }
        @{Name = '--threads'; Description = 'Worker goroutines per process' }
        @{Name = '--procs'; Description = 'Cooperating processes in the run' }
        @{Name = '--rank'; Description = 'Rank of this process' }
        @{Name = '--nats'; Description = 'NATS broker URL' }
        @{Name = '--embed-nats'; Description = 'Start an embedded NATS broker' }
        @{Name = '--run'; Description = 'Run identifier shared by all processes' }
        @{Name = '--timeout'; Description = 'Maximum execution time' }
        @{Name = '--metrics-addr'; Description = 'Listen address for the metrics endpoint' }
        @{Name = '--csv'; Description = 'Output the result as a CSV row' }
        @{Name = '--json'; Description = 'Output in JSON format' }
        @{Name = '-v'; Description = 'Display the full digit string' }
        @{Name = '--no-color'; Description = 'Disable colored output' }
        @{Name = '-o'; Description = 'Output file path' }
        @{Name = '--output'; Description = 'Output file path' }
        @{Name = '-q'; Description = 'Quiet mode for scripts' }
        @{Name = '--quiet'; Description = 'Quiet mode for scripts' }
        @{Name = '--completion'; Description = 'Generate completion script' }
    )

    $elements = $commandAst.CommandElements
    $lastElement = if ($elements.Count -gt 1) { $elements[-1].ToString() } else { '' }
    $prevElement = if ($elements.Count -gt 2) { $elements[-2].ToString() } else { '' }

    # Context-aware completions
    switch ($prevElement) {
        { $_ -in '--algorithm', '--algo' } {
            $picalcAlgorithms | Where-Object { $_ -like "$wordToComplete*" } | ForEach-Object {
                [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', $_)
            }
            return
        }
        '--lib' {
            $picalcLibraries | Where-Object { $_ -like "$wordToComplete*" } | ForEach-Object {
                [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', $_)
            }
            return
        }
        '--completion' {
            @('bash', 'zsh', 'fish', 'powershell') | Where-Object { $_ -like "$wordToComplete*" } | ForEach-Object {
                [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', $_)
            }
            return
        }
        '--timeout' {
            @('1m', '5m', '10m', '30m', '1h') | Where-Object { $_ -like "$wordToComplete*" } | ForEach-Object {
                [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', $_)
            }
            return
        }
        '--precision' {
            @('1000', '10000', '100000', '1000000') | Where-Object { $_ -like "$wordToComplete*" } | ForEach-Object {
                [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', $_)
            }
            return
        }
    }

    # Default: show options
    $options | Where-Object { $_.Name -like "$wordToComplete*" } | ForEach-Object {
        [System.Management.Automation.CompletionResult]::new($_.Name, $_.Name, 'ParameterName', $_.Description)
    }
}
`
	_, err := fmt.Fprintf(out, script, psQuoted(algorithms), psQuoted(libraries))
	return err
}
