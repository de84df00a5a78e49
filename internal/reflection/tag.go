package reflection

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// TagName is the struct tag the analyzer reads.
const TagName = "inject"

// TagInfo contains parsed inject tag information.
type TagInfo struct {
	Token    string
	Optional bool
	Self     bool
	Host     bool
	SkipSelf bool
	Ignore   bool
	Attrs    map[string]string
}

// tagAST is the root of an inject tag such as `token=db.primary,optional`.
type tagAST struct {
	Directives []*tagDirective `parser:"( @@ ( ',' @@ )* )?"`
}

type tagDirective struct {
	Ignore bool     `parser:"  @'-'"`
	Pair   *tagPair `parser:"| @@"`
}

type tagPair struct {
	Key   string  `parser:"@Ident"`
	Value *string `parser:"( '=' ( @String | @Ident ) )?"`
}

var tagParser = participle.MustBuild[tagAST](
	participle.Lexer(lexer.MustSimple([]lexer.SimpleRule{
		{Name: "String", Pattern: `"(\\"|[^"])*"`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_.\-/:]*`},
		{Name: "Punct", Pattern: `[-,=]`},
		{Name: "Whitespace", Pattern: `\s+`},
	})),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
)

// ParseTag parses the value of an inject struct tag.
//
// Directives are comma separated: token=<ident|"quoted">, optional, self,
// host and skipself. A lone "-" ignores the field. Any other key=value pair
// is kept as an attribute.
func ParseTag(tag string) (TagInfo, error) {
	info := TagInfo{}
	if strings.TrimSpace(tag) == "" {
		return info, nil
	}

	ast, err := tagParser.ParseString("", tag)
	if err != nil {
		return info, fmt.Errorf("invalid %s tag %q: %w", TagName, tag, err)
	}

	for _, d := range ast.Directives {
		if d.Ignore {
			info.Ignore = true
			continue
		}

		key := strings.ToLower(d.Pair.Key)
		value := ""
		if d.Pair.Value != nil {
			value = *d.Pair.Value
		}

		switch key {
		case "token":
			if value == "" {
				return info, fmt.Errorf("invalid %s tag %q: token requires a value", TagName, tag)
			}
			info.Token = value
		case "optional":
			info.Optional = true
		case "self":
			info.Self = true
		case "host":
			info.Host = true
		case "skipself":
			info.SkipSelf = true
		default:
			if info.Attrs == nil {
				info.Attrs = make(map[string]string)
			}
			info.Attrs[d.Pair.Key] = value
		}
	}

	if info.Self && info.Host {
		return info, fmt.Errorf("invalid %s tag %q: self and host are mutually exclusive", TagName, tag)
	}

	return info, nil
}
