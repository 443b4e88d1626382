package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/viant/restauth"
	"github.com/viant/restauth/client/auth"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Run parses args and executes the selected command, writing results to stdout.
func Run(ctx context.Context, args []string, stdout io.Writer) error {
	options := &Options{}
	parser := flags.NewParser(options, flags.HelpFlag|flags.PassDoubleDash)
	parser.SubcommandsOptional = false
	if _, err := parser.ParseArgs(args); err != nil {
		return err
	}
	clientOptions, err := restauth.LoadOptions(options.File)
	if err != nil {
		return err
	}
	merge(clientOptions, &options.Client)
	clientOptions.Init()

	if parser.Active.Name == "config" {
		return printOptions(clientOptions, stdout)
	}

	logger := zap.NewNop()
	if options.Verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
	}
	client, err := restauth.New(ctx, clientOptions, restauth.WithLogger(logger))
	if err != nil {
		return err
	}
	switch parser.Active.Name {
	case "login":
		return login(ctx, client, &options.Login, stdout)
	case "logout":
		if err = client.Logout(ctx); err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, "logged out")
		return err
	case "status":
		return status(ctx, client, stdout)
	case "call":
		return call(ctx, client, &options.Call, stdout)
	}
	return fmt.Errorf("unsupported command: %v", parser.Active.Name)
}

func login(ctx context.Context, client *restauth.Client, cmd *LoginCommand, stdout io.Writer) error {
	if cmd.Password == "" {
		return errors.New("password was empty, use --password or RESTAUTH_PASSWORD")
	}
	credentials, err := client.Login(ctx, cmd.Username, cmd.Password, cmd.Remember)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "logged in as %v: %v\n", cmd.Username, credentials)
	return err
}

func status(ctx context.Context, client *restauth.Client, stdout io.Writer) error {
	scope, ok, err := client.Store().Scope(ctx)
	if err != nil {
		return err
	}
	if !ok {
		_, err = fmt.Fprintln(stdout, "not authenticated")
		return err
	}
	credentials, err := client.Store().Read(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "authenticated (%v): %v\n", scope, credentials)
	return err
}

func call(ctx context.Context, client *restauth.Client, cmd *CallCommand, stdout io.Writer) error {
	var body interface{}
	if cmd.Data != "" {
		body = cmd.Data
		if strings.HasPrefix(cmd.Data, "@") {
			data, err := os.ReadFile(cmd.Data[1:])
			if err != nil {
				return err
			}
			body = data
		}
	}
	request, err := restauth.NewRequest(strings.ToUpper(cmd.Method), cmd.Args.Path, body, !cmd.Public)
	if err != nil {
		return err
	}
	for _, header := range cmd.Header {
		name, value, ok := strings.Cut(header, ":")
		if !ok {
			return fmt.Errorf("invalid header: %v", header)
		}
		request.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	resp, err := client.Execute(ctx, request)
	if auth.IsSessionExpired(err) {
		return fmt.Errorf("%w, please log in again", err)
	}
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if _, err = fmt.Fprintf(stdout, "%v %v\n", resp.StatusCode, http.StatusText(resp.StatusCode)); err != nil {
		return err
	}
	_, err = io.Copy(stdout, resp.Body)
	return err
}

func printOptions(options *restauth.Options, stdout io.Writer) error {
	encoder := yaml.NewEncoder(stdout)
	encoder.SetIndent(2)
	if err := encoder.Encode(options); err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}
	return encoder.Close()
}
