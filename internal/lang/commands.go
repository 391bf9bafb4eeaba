package lang

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Commands lists the generator names accepted by Command.
var Commands = []string{"generate", "merge", "copy", "update", "compile", "all"}

// Command appends the lines of the named generator.
func (p *Parser) Command(name string) error {
	switch name {
	case "generate":
		p.Generate()
	case "merge":
		p.Merge()
	case "copy":
		p.Copy()
	case "update":
		p.Update()
	case "compile":
		p.Compile()
	case "all":
		p.All()
	default:
		return fmt.Errorf("lang: unknown command %q (want one of %s)", name, strings.Join(Commands, ", "))
	}
	return nil
}

func (p *Parser) echo(text string) string {
	if p.opts.Windows {
		return "echo " + text
	}
	return `echo "` + text + `"`
}

func (p *Parser) add(comment, command string) {
	p.lines = append(p.lines, p.echo(comment), command)
}

// Generate extracts one template per source file.
func (p *Parser) Generate() {
	for _, f := range p.files {
		p.add("Create "+filepath.Base(f.Pot),
			fmt.Sprintf("xgettext%s -L python -d %s -o %s %s", p.ext, f.Domain, f.Pot, f.Path))
	}
}

// Merge concatenates the file templates of each domain.
func (p *Parser) Merge() {
	for _, d := range p.domains {
		cmd := "msgcat" + p.ext
		for _, f := range d.Files {
			cmd += " " + f.Pot
		}
		p.add("Merge "+filepath.Base(d.Pot), cmd+" -o "+d.Pot)
	}
}

// Copy seeds every language catalog with the domain template.
func (p *Parser) Copy() {
	cp := "cp"
	if p.opts.Windows {
		cp = "copy"
	}
	for _, d := range p.domains {
		for _, l := range d.Languages {
			p.add("Update "+l.Name+"/"+d.Name, fmt.Sprintf("%s %s %s", cp, d.Pot, l.Po))
		}
	}
}

// Update merges the domain template into every language catalog.
func (p *Parser) Update() {
	for _, d := range p.domains {
		for _, l := range d.Languages {
			p.add("Update "+l.Name+"/"+d.Name,
				fmt.Sprintf("msgmerge%s -N -U %s %s", p.ext, l.Po, d.Pot))
		}
	}
}

// Compile builds the binary catalogs. Languages without a catalog yet are
// skipped.
func (p *Parser) Compile() {
	for _, d := range p.domains {
		for _, l := range d.Languages {
			if _, err := os.Stat(l.Po); err != nil {
				continue
			}
			p.add("Compile "+l.Name+"/"+d.Name,
				fmt.Sprintf("msgfmt%s -o %s %s", p.ext, l.Mo, l.Po))
		}
	}
}

// All runs generate, merge, update and compile in order.
func (p *Parser) All() {
	p.Generate()
	p.Merge()
	p.Update()
	p.Compile()
}
