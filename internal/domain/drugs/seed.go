package drugs

// Dataset de referencia embebido para dev y tests.
// En producción la tabla se carga desde el dataset externo; este seed cubre
// las drogas más comunes del flujo de onboarding.

func SeedIdentities() []Identity {
	return []Identity{
		{ID: "drug-lisinopril", Name: "Lisinopril", GenericName: "Lisinopril", BrandNames: []string{"Prinivil", "Zestril"}, Category: "ACE Inhibitor"},
		{ID: "drug-metformin", Name: "Metformin", GenericName: "Metformin", BrandNames: []string{"Glucophage", "Fortamet"}, Category: "Antidiabetic"},
		{ID: "drug-atorvastatin", Name: "Atorvastatin", GenericName: "Atorvastatin", BrandNames: []string{"Lipitor"}, Category: "Statin"},
		{ID: "drug-simvastatin", Name: "Simvastatin", GenericName: "Simvastatin", BrandNames: []string{"Zocor"}, Category: "Statin"},
		{ID: "drug-aspirin", Name: "Aspirin", GenericName: "Acetylsalicylic Acid", BrandNames: []string{"Bayer", "Ecotrin"}, Category: "Antiplatelet"},
		{ID: "drug-warfarin", Name: "Warfarin", GenericName: "Warfarin", BrandNames: []string{"Coumadin"}, Category: "Anticoagulant"},
		{ID: "drug-ibuprofen", Name: "Ibuprofen", GenericName: "Ibuprofen", BrandNames: []string{"Advil", "Motrin"}, Category: "NSAID"},
		{ID: "drug-amiodarone", Name: "Amiodarone", GenericName: "Amiodarone", BrandNames: []string{"Pacerone"}, Category: "Antiarrhythmic"},
		{ID: "drug-levothyroxine", Name: "Levothyroxine", GenericName: "Levothyroxine", BrandNames: []string{"Synthroid"}, Category: "Thyroid"},
		{ID: "drug-sildenafil", Name: "Sildenafil", GenericName: "Sildenafil", BrandNames: []string{"Viagra"}, Category: "PDE5 Inhibitor"},
		{ID: "drug-nitroglycerin", Name: "Nitroglycerin", GenericName: "Nitroglycerin", BrandNames: []string{"Nitrostat"}, Category: "Nitrate"},
	}
}

func SeedInteractions() []InteractionRule {
	return []InteractionRule{
		{
			DrugA:          "drug-lisinopril",
			DrugB:          "drug-aspirin",
			Severity:       SeverityModerate,
			Description:    "Aspirin may reduce the blood-pressure-lowering effect of Lisinopril and increase the risk of kidney problems.",
			Recommendation: "Monitor blood pressure regularly. Consult your doctor if you notice changes.",
		},
		{
			DrugA:          "drug-warfarin",
			DrugB:          "drug-ibuprofen",
			Severity:       SeveritySevere,
			Description:    "Combining Warfarin with Ibuprofen significantly increases the risk of bleeding.",
			Recommendation: "Avoid combination. Consult your doctor immediately if you experience unusual bleeding or bruising.",
		},
		{
			DrugA:          "drug-warfarin",
			DrugB:          "drug-aspirin",
			Severity:       SeveritySevere,
			Description:    "Warfarin taken with Aspirin increases the risk of major bleeding.",
			Recommendation: "Avoid combination unless explicitly prescribed together. Watch for unusual bleeding.",
		},
		{
			DrugA:          "drug-simvastatin",
			DrugB:          "drug-amiodarone",
			Severity:       SeveritySevere,
			Description:    "Amiodarone can increase simvastatin levels, increasing the risk of muscle damage (rhabdomyolysis).",
			Recommendation: "Ask your doctor about dose limits or an alternative statin.",
		},
		{
			DrugA:          "drug-sildenafil",
			DrugB:          "drug-nitroglycerin",
			Severity:       SeveritySevere,
			Description:    "Sildenafil taken with nitrates can cause a dangerous drop in blood pressure.",
			Recommendation: "Do not combine. Seek medical advice before taking either.",
		},
		{
			DrugA:          "drug-metformin",
			DrugB:          "drug-lisinopril",
			Severity:       SeverityModerate,
			Description:    "ACE inhibitors may enhance the blood-glucose-lowering effect of Metformin.",
			Recommendation: "Monitor blood glucose when starting or stopping either medication.",
		},
		{
			DrugA:          "drug-levothyroxine",
			DrugB:          "drug-aspirin",
			Severity:       SeverityModerate,
			Description:    "Salicylates can transiently increase free thyroid hormone levels.",
			Recommendation: "Separate doses and monitor thyroid labs if use is chronic.",
		},
	}
}
