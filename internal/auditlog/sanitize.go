package auditlog

import "strings"

const redacted = "<redacted>"

// secretFlag reports whether flag carries a password.
func secretFlag(flag string) bool {
	return flag == "-p" || flag == "--password"
}

// SanitizeArgs returns a copy of a command line with every password flag
// value replaced, in all of the "-p x", "-px", "--password x" and
// "--password=x" forms.
func SanitizeArgs(args []string) []string {
	out := make([]string, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case secretFlag(arg):
			out[i] = arg
			if i+1 < len(args) {
				i++
				out[i] = redacted
			}
		case strings.HasPrefix(arg, "--password="), strings.HasPrefix(arg, "-p="):
			flag, _, _ := strings.Cut(arg, "=")
			out[i] = flag + "=" + redacted
		case strings.HasPrefix(arg, "-p") && !strings.HasPrefix(arg, "--") && len(arg) > 2:
			out[i] = "-p" + redacted
		default:
			out[i] = arg
		}
	}
	return out
}

// CommandLine renders a sanitized command line for storage.
func CommandLine(args []string) string {
	return strings.Join(SanitizeArgs(args), " ")
}
