/*
Copyright 2025 The Cozystack Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"fmt"

	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	_ "k8s.io/client-go/plugin/pkg/client/auth"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/cozystack/bro-hooks/internal/bro"
	"github.com/cozystack/bro-hooks/internal/config"
	"github.com/cozystack/bro-hooks/internal/kube"
)

// hookEnv is everything a hook talks to.
type hookEnv struct {
	config *config.Config
	store  *kube.Store
	bro    *bro.Client
}

// newHookEnv reads the configuration and connects to the cluster of the
// current service account. withBRO requires the orchestrator location.
func newHookEnv(withBRO bool) (*hookEnv, error) {
	cfg := config.Load()
	if withBRO {
		if err := cfg.RequireBRO(); err != nil {
			return nil, err
		}
	}

	restConfig, err := ctrl.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get kubeconfig: %w", err)
	}
	scheme := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	k8sClient, err := client.New(restConfig, client.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("failed to create k8s client: %w", err)
	}

	namespace, err := kube.ReadNamespace(cfg.NamespaceFile)
	if err != nil {
		return nil, err
	}

	env := &hookEnv{config: cfg, store: kube.NewStore(k8sClient, namespace)}
	if withBRO {
		env.bro = bro.NewClient(cfg.BROHost, cfg.BROPort)
	}
	return env, nil
}
