// # internal/ui/cli/cli.go
package cli

import (
	"flag"
	"io"
)

type globalOptions struct {
	configPath string
	verbose    bool
	version    bool
	args       []string
}

func parseGlobal(args []string, errOut io.Writer) (globalOptions, error) {
	var opts globalOptions
	fs := flag.NewFlagSet("nekoscript", flag.ContinueOnError)
	fs.SetOutput(errOut)

	fs.StringVar(&opts.configPath, "config", "", "Path to neko.toml (default: discovered from the working directory)")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return globalOptions{}, err
	}
	opts.args = fs.Args()
	return opts, nil
}

// parseInterspersed lets flags follow positional arguments, as in
// "run main.neko --watch".
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func newFlagSet(name string, errOut io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(errOut)
	return fs
}

const helpText = `Utilisation: nekoscript [--config neko.toml] [--verbose] <commande> [arguments]

Commandes:
  run <fichier.neko> [--watch]          Exécuter un fichier nekoScript
  transpile <fichier.neko> [-o sortie]  Traduire en JavaScript
  build [dossier] [-o dist]             Traduire tous les fichiers .neko d'un projet
  repl                                  Mode interactif (par défaut sans commande)
  serve [--addr hôte:port]              Démarrer l'API HTTP
  init [nom]                            Créer un nouveau projet
  publish <fichier.neko>                Publier une bibliothèque
  librairie <nom>                       Installer une bibliothèque dans libs/
  export-html <fichier.neko> [-o dir]   Exporter un programme en page HTML
  historique [--limit n] [--tsv f]      Afficher les dernières exécutions
  télécharger                           Installer les bibliothèques de base
  version                               Afficher la version
  aide                                  Afficher cette aide

Exemples:
  nekoscript télécharger
  nekoscript init mon-projet
  nekoscript run src/main.neko
  nekoscript publish MathLib.neko
`
