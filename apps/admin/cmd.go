package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp       = errors.New("help provided")
	errNoDatabase = errors.New("migrations need the postgres database engine")
)

type commandLine struct {
	db         *sql.DB // nil with the memory engine
	usrRepo    user.Repository
	usrSvc     *user.Service
	courseRepo course.Repository
	courseSvc  *course.Service
	validate   *validator.Validate
	translator ut.Translator
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                       - run a goose migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  createadmin -name NAME -uname USERNAME -email EMAIL - create an admin owner")
	fmt.Fprintln(cli.out, "  resetpassword -uname USERNAME|EMAIL          - reset user's password")
	fmt.Fprintln(cli.out, "  importcourses -file FILE.csv                 - create the courses listed in a CSV file")
	fmt.Fprintln(cli.out, "  exportcourses -file FILE.csv                 - write all courses to a CSV file")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createAdminCmd := flag.NewFlagSet("createadmin", flag.ExitOnError)
	createAdminName := createAdminCmd.String("name", "", "The admin's name.")
	createAdminUname := createAdminCmd.String("uname", "", "The admin's username. The password will be prompted next.")
	createAdminEmail := createAdminCmd.String("email", "", "The admin's email.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("uname", "", "The user's username or email. The password will be prompted next.")

	importCoursesCmd := flag.NewFlagSet("importcourses", flag.ExitOnError)
	importCoursesFile := importCoursesCmd.String("file", "", "The CSV file to read courses from.")

	exportCoursesCmd := flag.NewFlagSet("exportcourses", flag.ExitOnError)
	exportCoursesFile := exportCoursesCmd.String("file", "", "The CSV file to write courses to.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "createadmin":
		if err := createAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createAdminName == "" || (*createAdminUname == "" && *createAdminEmail == "") {
			createAdminCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			createAdminCmd.Usage()
			return errHelp
		}
		return cli.createAdmin(*createAdminName, *createAdminUname, *createAdminEmail, pwd)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "importcourses":
		if err := importCoursesCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importCoursesFile == "" {
			importCoursesCmd.Usage()
			return errHelp
		}
		return cli.importCourses(*importCoursesFile)

	case "exportcourses":
		if err := exportCoursesCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *exportCoursesFile == "" {
			exportCoursesCmd.Usage()
			return errHelp
		}
		return cli.exportCourses(*exportCoursesFile)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) readPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

// validationError flattens validation errors into a single readable error.
func (cli *commandLine) validationError(err error) error {
	var msgs []string
	switch vErr := err.(type) {
	case validator.ValidationErrors:
		for _, fErr := range vErr {
			msgs = append(msgs, fErr.Field()+": "+fErr.Translate(cli.translator))
		}
	case *core.ValidationError:
		for _, fErr := range vErr.Fields {
			msgs = append(msgs, fErr.Field+": "+fErr.Error)
		}
	default:
		return err
	}
	sort.Strings(msgs)
	return errors.New(strings.Join(msgs, "; "))
}
