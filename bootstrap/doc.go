// Package bootstrap wires configuration, logging and the file parser
// together for the ceflog command line.
//
// Usage:
//
//	app, err := bootstrap.NewApp(bootstrap.AppOptions{ConfigPath: path})
//	if err != nil {
//	    return err
//	}
//	defer app.Shutdown()
//
//	log, err := app.Parser.ParseFile("events.cef")
package bootstrap
