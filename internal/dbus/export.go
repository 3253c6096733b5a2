package dbus

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

// service describes one exported object and the bus name it claims.
type service struct {
	path     dbus.ObjectPath
	iface    string
	busName  string
	flags    dbus.RequestNameFlags
	rename   map[string]string // Go method name -> bus method name
	methods  []introspect.Method
	signals  []introspect.Signal
	describe string
}

// export publishes obj with its introspection data and claims the bus name.
func (svc service) export(conn *dbus.Conn, obj any) error {
	var err error
	if svc.rename != nil {
		err = conn.ExportWithMap(obj, svc.rename, svc.path, svc.iface)
	} else {
		err = conn.Export(obj, svc.path, svc.iface)
	}
	if err != nil {
		return fmt.Errorf("failed to export %s: %w", svc.describe, err)
	}

	node := &introspect.Node{
		Name: string(svc.path),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{Name: svc.iface, Methods: svc.methods, Signals: svc.signals},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), svc.path,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(svc.busName, svc.flags)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", svc.busName)
	}
	return nil
}

// method builds introspection data from "name:type" args; outputs follow "->".
func method(name string, args ...string) introspect.Method {
	m := introspect.Method{Name: name}
	dir := "in"
	for _, a := range args {
		if a == "->" {
			dir = "out"
			continue
		}
		argName, argType, _ := strings.Cut(a, ":")
		m.Args = append(m.Args, introspect.Arg{Name: argName, Type: argType, Direction: dir})
	}
	return m
}

// signal builds introspection data from "name:type" args.
func signal(name string, args ...string) introspect.Signal {
	s := introspect.Signal{Name: name}
	for _, a := range args {
		argName, argType, _ := strings.Cut(a, ":")
		s.Args = append(s.Args, introspect.Arg{Name: argName, Type: argType})
	}
	return s
}
